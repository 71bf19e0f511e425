// internal/authz/spicedb/client.go
package spicedb

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/authzed/authzed-go/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// NewClient dials the configured SpiceDB endpoint.
func NewClient(config Config) (*authzed.Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("SpiceDB endpoint is required")
	}

	var opts []grpc.DialOption
	if config.Insecure {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
	}
	if config.Token != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCredentials{
			token:            config.Token,
			requireTransport: !config.Insecure,
		}))
	}

	client, err := authzed.NewClient(config.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial SpiceDB at %s: %w", config.Endpoint, err)
	}
	return client, nil
}

// bearerCredentials attaches the preshared SpiceDB token to every RPC.
type bearerCredentials struct {
	token            string
	requireTransport bool
}

func (c bearerCredentials) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + c.token}, nil
}

func (c bearerCredentials) RequireTransportSecurity() bool {
	return c.requireTransport
}
