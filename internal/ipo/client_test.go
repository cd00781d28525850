package ipo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
)

// testClient points the package at an ephemeral TLS listener standing in for
// the appliance. The listener's self-signed certificate exercises the same
// insecure-transport opt-in real deployments use.
func testClient(t *testing.T, handler http.Handler) (*Client, Credentials) {
	t.Helper()

	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	oldPort := managementPort
	managementPort = u.Port()
	t.Cleanup(func() { managementPort = oldPort })

	creds := Credentials{
		Host:             u.Hostname(),
		Username:         "Administrator",
		Password:         "secret",
		AllowInsecureTLS: true,
	}
	return NewClient(Options{}), creds
}

func TestBaseURL(t *testing.T) {
	cases := []struct {
		host string
		want string
	}{
		{"10.0.0.10", "https://10.0.0.10:7070/WebManagement/ws/sdk"},
		{"pbx.example.com", "https://pbx.example.com:7070/WebManagement/ws/sdk"},
		{"http://pbx.example.com", "https://pbx.example.com:7070/WebManagement/ws/sdk"},
		{"https://pbx.example.com:8443", "https://pbx.example.com:7070/WebManagement/ws/sdk"},
		{"https://pbx.example.com/x?y=1", "https://pbx.example.com:7070/WebManagement/ws/sdk"},
		{" pbx.example.com ", "https://pbx.example.com:7070/WebManagement/ws/sdk"},
	}
	for _, c := range cases {
		if got := BaseURL(c.host); got != c.want {
			t.Errorf("BaseURL(%q) = %q, want %q", c.host, got, c.want)
		}
	}
}

func TestMergeCookieHeader(t *testing.T) {
	t.Run("OrderingIsDeterministic", func(t *testing.T) {
		want := "JSESSIONID=abc; SDK-Token=tok; Other=1"

		// Same multiset in different arrival orders.
		inputs := [][]string{
			{"JSESSIONID=abc; Path=/", "SDK-Token=tok; HttpOnly", "Other=1"},
			{"Other=1", "SDK-Token=tok; HttpOnly", "JSESSIONID=abc; Path=/"},
			{"SDK-Token=tok", "Other=1", "JSESSIONID=abc"},
		}
		for _, in := range inputs {
			if got := MergeCookieHeader(in); got != want {
				t.Errorf("MergeCookieHeader(%v) = %q, want %q", in, got, want)
			}
		}
	})

	t.Run("DuplicatesCollapseLastWins", func(t *testing.T) {
		got := MergeCookieHeader([]string{"JSESSIONID=old", "SDK-Token=tok", "JSESSIONID=new"})
		if got != "JSESSIONID=new; SDK-Token=tok" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("PreJoinedHeaderIsSplit", func(t *testing.T) {
		got := MergeCookieHeader([]string{"JSESSIONID=abc; Path=/, SDK-Token=tok; HttpOnly"})
		if got != "JSESSIONID=abc; SDK-Token=tok" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("SDKTokenNameVariants", func(t *testing.T) {
		got := MergeCookieHeader([]string{"X-SDK-Token=tok", "JSESSIONID=abc"})
		if got != "JSESSIONID=abc; X-SDK-Token=tok" {
			t.Errorf("got %q", got)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client, creds := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/WebManagement/ws/sdk/security/authenticate" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			user, pass, ok := r.BasicAuth()
			if !ok || user != "Administrator" || pass != "secret" {
				t.Error("missing or wrong basic auth")
			}
			if r.Header.Get("X-User-Agent") != "Avaya-SDKUser" {
				t.Errorf("X-User-Agent = %q", r.Header.Get("X-User-Agent"))
			}
			w.Header().Add("Set-Cookie", "JSESSIONID=abc; Path=/; HttpOnly")
			w.Header().Add("Set-Cookie", "SDK-Token=tok; Path=/")
			w.WriteHeader(http.StatusOK)
		}))

		sess, err := client.Authenticate(context.Background(), creds)
		if err != nil {
			t.Fatal(err)
		}
		if sess.CookieHeader != "JSESSIONID=abc; SDK-Token=tok" {
			t.Errorf("cookie header = %q", sess.CookieHeader)
		}
	})

	t.Run("Non2xxFails", func(t *testing.T) {
		client, creds := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
		}))

		_, err := client.Authenticate(context.Background(), creds)
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected AuthError, got %v", err)
		}
		if authErr.Status != http.StatusUnauthorized {
			t.Errorf("status = %d", authErr.Status)
		}
		if !strings.Contains(authErr.Error(), "bad credentials") {
			t.Errorf("error should carry response body: %v", authErr)
		}
	})

	t.Run("MissingSDKTokenFailsDespite200", func(t *testing.T) {
		client, creds := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Set-Cookie", "JSESSIONID=abc")
			w.WriteHeader(http.StatusOK)
		}))

		_, err := client.Authenticate(context.Background(), creds)
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected AuthError, got %v", err)
		}
	})

	t.Run("NoCookiesFails", func(t *testing.T) {
		client, creds := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		_, err := client.Authenticate(context.Background(), creds)
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestRequest(t *testing.T) {
	t.Run("ProtectedUserDeleteNeverReachesNetwork", func(t *testing.T) {
		var calls atomic.Int64
		client, creds := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))

		for _, name := range []string{"NoUser", "nouser", "NOUSER"} {
			_, err := client.Request(context.Background(), creds, Session{CookieHeader: "JSESSIONID=a; SDK-Token=b"},
				"/admin/v1/users?name="+name, http.MethodDelete, nil)

			var reqErr *RequestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("expected RequestError for %q, got %v", name, err)
			}
		}
		if calls.Load() != 0 {
			t.Errorf("expected zero network calls, got %d", calls.Load())
		}
	})

	t.Run("SendsCookieAndAcceptHeaders", func(t *testing.T) {
		client, creds := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Cookie"); got != "JSESSIONID=a; SDK-Token=b" {
				t.Errorf("Cookie = %q", got)
			}
			if got := r.Header.Get("Accept"); !strings.Contains(got, "application/xml") {
				t.Errorf("Accept = %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"response":{"@status":"1","data":{}}}`))
		}))

		raw, err := client.Request(context.Background(), creds, Session{CookieHeader: "JSESSIONID=a; SDK-Token=b"},
			"admin/v1/users", "", nil)
		if err != nil {
			t.Fatal(err)
		}
		if raw.Status != http.StatusOK {
			t.Errorf("status = %d", raw.Status)
		}
		if raw.ContentType != "application/json" {
			t.Errorf("content type = %q", raw.ContentType)
		}
		if !strings.Contains(raw.Body, `"@status":"1"`) {
			t.Errorf("body = %q", raw.Body)
		}
	})

	t.Run("Non2xxIsRequestError", func(t *testing.T) {
		client, creds := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))

		_, err := client.Request(context.Background(), creds, Session{}, "/admin/v1/users", http.MethodGet, nil)
		var reqErr *RequestError
		if !errors.As(err, &reqErr) {
			t.Fatalf("expected RequestError, got %v", err)
		}
		if reqErr.Status != http.StatusInternalServerError {
			t.Errorf("status = %d", reqErr.Status)
		}
	})

	t.Run("BodyIsJSONEncoded", func(t *testing.T) {
		client, creds := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Content-Type"); got != "application/json" {
				t.Errorf("Content-Type = %q", got)
			}
			w.WriteHeader(http.StatusOK)
		}))

		payload := map[string]string{"Name": "alice"}
		if _, err := client.Request(context.Background(), creds, Session{}, "/admin/v1/users", http.MethodPut, payload); err != nil {
			t.Fatal(err)
		}
	})
}

func TestDeauthenticate_FallbackPath(t *testing.T) {
	var sdkCalls, fallbackCalls atomic.Int64
	client, creds := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/WebManagement/ws/sdk/security/authenticate":
			sdkCalls.Add(1)
			http.Error(w, "not here", http.StatusNotFound)
		case "/WebManagement/ws/security/authenticate":
			fallbackCalls.Add(1)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	out := client.Deauthenticate(context.Background(), creds, Session{CookieHeader: "JSESSIONID=a; SDK-Token=b"})

	if !out.OK {
		t.Errorf("expected fallback logout to succeed, got %+v", out)
	}
	if sdkCalls.Load() != 1 || fallbackCalls.Load() != 1 {
		t.Errorf("expected both paths tried once, got sdk=%d fallback=%d", sdkCalls.Load(), fallbackCalls.Load())
	}
}

func TestWithSession(t *testing.T) {
	newApplianceHandler := func(authCalls, logoutCalls, workCalls *atomic.Int64) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.HasSuffix(r.URL.Path, "/security/authenticate") && r.Method == http.MethodGet:
				authCalls.Add(1)
				w.Header().Add("Set-Cookie", "JSESSIONID=abc")
				w.Header().Add("Set-Cookie", "SDK-Token=tok")
				w.WriteHeader(http.StatusOK)
			case strings.HasSuffix(r.URL.Path, "/security/authenticate") && r.Method == http.MethodDelete:
				logoutCalls.Add(1)
				w.WriteHeader(http.StatusOK)
			default:
				workCalls.Add(1)
				w.Write([]byte(`{"response":{"@status":"1","data":{}}}`))
			}
		})
	}

	t.Run("WorkResultPropagates", func(t *testing.T) {
		var authCalls, logoutCalls, workCalls atomic.Int64
		client, creds := testClient(t, newApplianceHandler(&authCalls, &logoutCalls, &workCalls))

		raw, err := WithSession(context.Background(), client, creds, func(sess Session) (RawResponse, error) {
			return client.Request(context.Background(), creds, sess, "/admin/v1/users", http.MethodGet, nil)
		})
		if err != nil {
			t.Fatal(err)
		}
		if raw.Status != http.StatusOK {
			t.Errorf("status = %d", raw.Status)
		}
		if authCalls.Load() != 1 || workCalls.Load() != 1 || logoutCalls.Load() != 1 {
			t.Errorf("auth=%d work=%d logout=%d, want 1/1/1",
				authCalls.Load(), workCalls.Load(), logoutCalls.Load())
		}
	})

	t.Run("LogoutStillAttemptedWhenWorkFails", func(t *testing.T) {
		var authCalls, logoutCalls, workCalls atomic.Int64
		client, creds := testClient(t, newApplianceHandler(&authCalls, &logoutCalls, &workCalls))

		workErr := errors.New("work exploded")
		_, err := WithSession(context.Background(), client, creds, func(Session) (RawResponse, error) {
			return RawResponse{}, workErr
		})

		if !errors.Is(err, workErr) {
			t.Fatalf("expected the work error to propagate, got %v", err)
		}
		if logoutCalls.Load() != 1 {
			t.Errorf("expected one logout attempt, got %d", logoutCalls.Load())
		}
	})

	t.Run("AuthFailureSkipsWorkAndLogout", func(t *testing.T) {
		var logoutCalls atomic.Int64
		client, creds := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodDelete {
				logoutCalls.Add(1)
			}
			http.Error(w, "no", http.StatusUnauthorized)
		}))

		workRan := false
		_, err := WithSession(context.Background(), client, creds, func(Session) (RawResponse, error) {
			workRan = true
			return RawResponse{}, nil
		})

		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected AuthError, got %v", err)
		}
		if workRan {
			t.Error("work must not run after failed authentication")
		}
		if logoutCalls.Load() != 0 {
			t.Errorf("expected no logout attempts, got %d", logoutCalls.Load())
		}
	})
}
