package notification

import (
	"PerfSpectra/internal/config"
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTP accepts one session and returns the DATA it received.
func fakeSMTP(t *testing.T) (host string, port int, data <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		reply := func(s string) { conn.Write([]byte(s + "\r\n")) }
		reply("220 fake ESMTP")

		var body strings.Builder
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 fake")
			case strings.HasPrefix(cmd, "DATA"):
				reply("354 go ahead")
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					body.WriteString(l)
				}
				out <- body.String()
				reply("250 queued")
			case strings.HasPrefix(cmd, "QUIT"):
				reply("221 bye")
				return
			default:
				reply("250 ok")
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, out
}

func TestEmailNotifier_Recipients(t *testing.T) {
	n := NewEmailNotifier(config.SMTPConfig{To: " a@example.com, ,b@example.com "}).(*EmailNotifier)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, n.Recipients())

	msg := string(n.Message("subj", "<p>x</p>"))
	assert.Contains(t, msg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, msg, "Subject: subj\r\n")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>x</p>"))
}

func TestEmailNotifier_Send(t *testing.T) {
	host, port, data := fakeSMTP(t)
	n := NewEmailNotifier(config.SMTPConfig{
		Host: host,
		Port: port,
		From: "perf@example.com",
		To:   "ops@example.com",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.Send(ctx, "Alert", "<h1>slow</h1>"))

	select {
	case body := <-data:
		assert.Contains(t, body, "Subject: Alert")
		assert.Contains(t, body, "<h1>slow</h1>")
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}

func TestEmailNotifier_SendErrors(t *testing.T) {
	n := NewEmailNotifier(config.SMTPConfig{Host: "127.0.0.1", Port: 1, To: ""})
	assert.Error(t, n.Send(context.Background(), "s", "b"), "no recipients")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	n = NewEmailNotifier(config.SMTPConfig{Host: "127.0.0.1", Port: port, To: "x@example.com"})
	assert.Error(t, n.Send(context.Background(), "s", "b"), "unreachable server")
}
