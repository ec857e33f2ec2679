package providers

import (
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/gaia-chat/gaia-gateway/external"
	"github.com/gaia-chat/gaia-gateway/internal/config"
)

// NewBedrock creates a generator for Anthropic models on AWS Bedrock.
// Requests are SigV4-signed; the signing client is built on first use so
// startup does not touch the AWS credential chain.
func NewBedrock(cfg config.ProviderConfig) *HTTPGenerator {
	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_DEFAULT_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	var (
		once   sync.Once
		client *http.Client
		err    error
	)
	signingClient := func() (*http.Client, error) {
		once.Do(func() {
			var transport *external.BedrockSigningTransport
			transport, err = external.NewBedrockSigningTransport(region, nil)
			if err != nil {
				err = fmt.Errorf("bedrock signing: %w", err)
				return
			}
			timeout := cfg.Timeout
			if timeout <= 0 {
				timeout = config.DefaultProviderTimeout
			}
			client = &http.Client{Transport: transport, Timeout: timeout}
		})
		return client, err
	}

	return &HTTPGenerator{
		provider:   ProviderBedrock,
		cfg:        cfg,
		requireKey: false,
		endpoint: func(model string) string {
			if cfg.Endpoint != "" {
				return cfg.Endpoint
			}
			return external.BedrockEndpoint(region, model)
		},
		client: signingClient,
	}
}
