package natsserver

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

func TestTokenAuth(t *testing.T) {
	token := "test-secret-token"
	logger := zerolog.Nop()

	// Start a NATS server with token auth on a random TCP port.
	srv, err := New(Config{
		Host:  "127.0.0.1",
		Port:  -1, // random port
		Token: token,
	}, logger)
	if err != nil {
		t.Fatalf("start server: %v", err)
	}
	defer srv.Shutdown()

	url := srv.ClientURL()

	// Connection WITHOUT token should fail.
	nc, err := nats.Connect(url)
	if err == nil {
		nc.Close()
		t.Fatal("expected connection without token to fail")
	}

	// Connection with WRONG token should fail.
	nc, err = nats.Connect(url, nats.Token("wrong-token"))
	if err == nil {
		nc.Close()
		t.Fatal("expected connection with wrong token to fail")
	}

	// Connection with CORRECT token should succeed.
	nc, err = nats.Connect(url, nats.Token(token))
	if err != nil {
		t.Fatalf("expected connection with correct token to succeed: %v", err)
	}
	nc.Close()
}

func TestNoToken_AllowsAnonymous(t *testing.T) {
	srv, err := New(Config{
		Host: "127.0.0.1",
		Port: -1,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("start server: %v", err)
	}
	defer srv.Shutdown()

	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("expected anonymous connection to succeed: %v", err)
	}
	nc.Close()
}

func TestInProcessClientOptions(t *testing.T) {
	srv, err := New(Config{Token: "tok"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("start server: %v", err)
	}
	defer srv.Shutdown()

	nc, err := nats.Connect(srv.ClientURL(), srv.ClientOptions()...)
	if err != nil {
		t.Fatalf("in-process connect: %v", err)
	}
	defer nc.Close()

	sub, err := nc.SubscribeSync("nativebridge.test")
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Conn().Publish("nativebridge.test", []byte("hi")); err != nil {
		t.Fatal(err)
	}
	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if string(msg.Data) != "hi" {
		t.Fatalf("got %q", msg.Data)
	}
}
