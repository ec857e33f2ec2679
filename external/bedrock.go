// Bedrock request signing.
//
// Bedrock authenticates with AWS SigV4 instead of an API key. The signing
// transport wraps a base RoundTripper, hashes the request body and signs
// each request with credentials from the default AWS chain (env, shared
// config, instance role).
package external

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// BedrockEndpoint returns the invoke URL for model in region.
func BedrockEndpoint(region, model string) string {
	return fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com/model/%s/invoke", region, url.PathEscape(model))
}

// BedrockSigningTransport signs requests for the bedrock service.
type BedrockSigningTransport struct {
	base   http.RoundTripper
	region string
	creds  aws.CredentialsProvider
	signer *v4.Signer
}

// NewBedrockSigningTransport loads the default AWS credential chain for
// region. A nil base uses http.DefaultTransport.
func NewBedrockSigningTransport(region string, base http.RoundTripper) (*BedrockSigningTransport, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if base == nil {
		base = http.DefaultTransport
	}
	return &BedrockSigningTransport{
		base:   base,
		region: region,
		creds:  cfg.Credentials,
		signer: v4.NewSigner(),
	}, nil
}

// RoundTrip signs a clone of req and forwards it.
func (t *BedrockSigningTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read body for signing: %w", err)
		}
	}

	signed := req.Clone(req.Context())
	signed.Body = io.NopCloser(bytes.NewReader(body))
	signed.ContentLength = int64(len(body))

	creds, err := t.creds.Retrieve(req.Context())
	if err != nil {
		return nil, fmt.Errorf("retrieve AWS credentials: %w", err)
	}

	sum := sha256.Sum256(body)
	if err := t.signer.SignHTTP(req.Context(), creds, signed, hex.EncodeToString(sum[:]), "bedrock", t.region, time.Now()); err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	return t.base.RoundTrip(signed)
}
