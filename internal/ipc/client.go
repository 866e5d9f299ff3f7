package ipc

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"resty.dev/v3"
)

// Client talks to a running instance over its control socket.
type Client struct {
	client *resty.Client
}

func NewClient(path string) *Client {
	client := resty.NewWithClient(&http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", path)
			},
		},
	})

	client.SetBaseURL("http://livepaper")
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "livepaper")

	return &Client{client: client}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Status() (*StatusResponse, error) {
	result := StatusResponse{}
	res, err := c.client.R().SetResult(&result).Get("/status")
	if err != nil {
		return nil, fmt.Errorf("error pinging socket: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("error pinging socket: %s", res.Status())
	}
	return &result, nil
}

func (c *Client) Send(t CommandType) (*Response, error) {
	result := Response{}
	res, err := c.client.R().SetResult(&result).SetError(&result).Post("/" + string(t))
	if err != nil {
		return nil, fmt.Errorf("error sending %s: %w", t, err)
	}
	if res.StatusCode() != http.StatusOK {
		if result.Error != "" {
			return nil, fmt.Errorf("error sending %s: %s", t, result.Error)
		}
		return nil, fmt.Errorf("error sending %s: %s", t, res.Status())
	}
	return &result, nil
}

// SendStatus reports whether an instance answers on the default socket.
func SendStatus() (*StatusResponse, error) {
	c := NewClient(SocketPath())
	defer c.Close()
	return c.Status()
}

func SendStop() error {
	c := NewClient(SocketPath())
	defer c.Close()
	_, err := c.Send(CommandStop)
	return err
}

func SendRedraw() error {
	c := NewClient(SocketPath())
	defer c.Close()
	_, err := c.Send(CommandRedraw)
	return err
}
