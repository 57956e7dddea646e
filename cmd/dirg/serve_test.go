package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenReturnsWhenAddressIsTaken(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	var stdout bytes.Buffer
	a := newApp(strings.NewReader(""), &stdout, &bytes.Buffer{})
	server := fiber.New(fiber.Config{DisableStartupMessage: true})

	err = a.listen(context.Background(), server, taken.Addr().String())
	assert.Error(t, err)
	assert.Contains(t, stdout.String(), "Server starting on "+taken.Addr().String())
}
