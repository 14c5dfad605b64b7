package httpcore

import "testing"

func dummyHandler(ex *Exchange, req *Request) (*Response, error) {
	return NewResponse(200), nil
}

func TestRouterLiteralMatch(t *testing.T) {
	rt := NewRouter()
	if err := rt.Register("/health", "GET", "", "", dummyHandler); err != nil {
		t.Fatalf("register: %v", err)
	}
	resolved, err := rt.Resolve("GET", "/health", "", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Handler == nil {
		t.Fatal("expected a handler")
	}
}

func TestRouterParamCapture(t *testing.T) {
	rt := NewRouter()
	if err := rt.Register("/users/:id", "GET", "", "", dummyHandler); err != nil {
		t.Fatalf("register: %v", err)
	}
	resolved, err := rt.Resolve("GET", "/users/42", "", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Params["id"] != "42" {
		t.Fatalf("got params %v", resolved.Params)
	}
}

func TestRouterLiteralPrefersOverParam(t *testing.T) {
	rt := NewRouter()
	if err := rt.Register("/users/:id", "GET", "", "", dummyHandler); err != nil {
		t.Fatalf("register param: %v", err)
	}
	called := false
	literalHandler := func(ex *Exchange, req *Request) (*Response, error) {
		called = true
		return NewResponse(200), nil
	}
	if err := rt.Register("/users/me", "GET", "", "", literalHandler); err != nil {
		t.Fatalf("register literal: %v", err)
	}
	resolved, err := rt.Resolve("GET", "/users/me", "", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := resolved.Handler(nil, nil); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !called {
		t.Fatal("expected the literal route to win over the param route")
	}
}

func TestRouterWildcard(t *testing.T) {
	rt := NewRouter()
	if err := rt.Register("/static/*", "GET", "", "", dummyHandler); err != nil {
		t.Fatalf("register: %v", err)
	}
	resolved, err := rt.Resolve("GET", "/static/css/app.css", "", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Handler == nil {
		t.Fatal("expected a handler")
	}
}

func TestRouterNoRouteFound(t *testing.T) {
	rt := NewRouter()
	_, err := rt.Resolve("GET", "/nope", "", "")
	exc, ok := AsException(err)
	if !ok || exc.Kind != KindNoRouteFound {
		t.Fatalf("expected NoRouteFound, got %v", err)
	}
}

func TestRouterMethodNotAllowed(t *testing.T) {
	rt := NewRouter()
	rt.Register("/items", "GET", "", "", dummyHandler)
	_, err := rt.Resolve("POST", "/items", "", "")
	exc, ok := AsException(err)
	if !ok || exc.Kind != KindMethodNotAllowed {
		t.Fatalf("expected MethodNotAllowed, got %v", err)
	}
}

func TestRouterOptionsDefault(t *testing.T) {
	rt := NewRouter()
	rt.Register("/items", "GET", "", "", dummyHandler)
	resolved, err := rt.Resolve("OPTIONS", "/items", "", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Handler != nil {
		t.Fatal("expected nil handler for default OPTIONS")
	}
}

func TestRouterMediaTypeFiltering(t *testing.T) {
	rt := NewRouter()
	rt.Register("/items", "POST", "application/json", "application/json", dummyHandler)

	_, err := rt.Resolve("POST", "/items", "text/plain", "application/json")
	exc, ok := AsException(err)
	if !ok || exc.Kind != KindMediaTypeUnsupported {
		t.Fatalf("expected MediaTypeUnsupported, got %v", err)
	}

	_, err = rt.Resolve("POST", "/items", "application/json", "text/plain")
	exc, ok = AsException(err)
	if !ok || exc.Kind != KindMediaTypeNotAccepted {
		t.Fatalf("expected MediaTypeNotAccepted, got %v", err)
	}

	resolved, err := rt.Resolve("POST", "/items", "application/json", "application/json")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Handler == nil {
		t.Fatal("expected a handler")
	}
}

func TestRouterRejectsDuplicateShape(t *testing.T) {
	rt := NewRouter()
	if err := rt.Register("/dup", "GET", "", "", dummyHandler); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := rt.Register("/dup", "GET", "", "", dummyHandler); err == nil {
		t.Fatal("expected error for duplicate route shape")
	}
}

func TestParsePatternRejectsBadWildcardPosition(t *testing.T) {
	_, err := ParsePattern("/a/*/b")
	if err == nil {
		t.Fatal("expected error: wildcard must be last segment")
	}
}
