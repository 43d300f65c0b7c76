/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package statuslist fetches the status lists referenced by credentials: StatusList2021 and
// SimpleRevocationList2022 credentials secured as JWT, and IETF token status list tokens. Fetched lists are
// verified against the issuer document and cached, so they can be passed to the validators.
package statuslist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-credential-validator/pkg/doc/did"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jose"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/jwt"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/revocation/revocationlist2022"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/revocation/statuslist2021"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/revocation/tokenstatuslist"
	sdjwtvc "github.com/hyperledger/aries-credential-validator/pkg/doc/sdjwt/vc"
	sigverifier "github.com/hyperledger/aries-credential-validator/pkg/doc/signature/verifier"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/verifiable"
	"github.com/hyperledger/aries-credential-validator/pkg/doc/verifiable/validator"
)

var logger = log.New("aries-framework/client/statuslist")

const (
	defaultTimeout       = time.Minute
	defaultCacheSize     = 100
	defaultCacheTTL      = 5 * time.Minute
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
	maxResponseBytes     = 1 << 24

	mediaTypeVCJWT      = "application/vc+jwt"
	mediaTypeStatusList = "application/statuslist+jwt"
)

var (
	// ErrUnsupportedFormat is returned for a status list which is not a compact JWS.
	ErrUnsupportedFormat = errors.New("unsupported status list format")
	// ErrFetch is returned when the status list cannot be retrieved.
	ErrFetch = errors.New("status list fetch failed")
)

// HTTPClient represents an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches and verifies status lists.
type Client struct {
	httpClient    HTTPClient
	resolver      did.Resolver
	sigVerifier   sigverifier.SignatureVerifier
	cache         gcache.Cache
	cacheSize     int
	cacheTTL      time.Duration
	maxRetries    uint64
	retryInterval time.Duration
	clock         func() time.Time
}

// Option configures the status list client.
type Option func(opts *Client)

// WithHTTPClient option is for custom http client.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(opts *Client) {
		opts.httpClient = httpClient
	}
}

// WithSignatureVerifier sets the verifier of status list signatures.
func WithSignatureVerifier(sv sigverifier.SignatureVerifier) Option {
	return func(opts *Client) {
		opts.sigVerifier = sv
	}
}

// WithCache sets the number of cached lists and documents and how long they are kept.
func WithCache(size int, ttl time.Duration) Option {
	return func(opts *Client) {
		opts.cacheSize = size
		opts.cacheTTL = ttl
	}
}

// WithRetry sets how many times a failed fetch is retried and the pause between attempts.
func WithRetry(maxRetries uint64, interval time.Duration) Option {
	return func(opts *Client) {
		opts.maxRetries = maxRetries
		opts.retryInterval = interval
	}
}

// WithClock sets the clock used to check the validity of fetched lists.
func WithClock(clock func() time.Time) Option {
	return func(opts *Client) {
		opts.clock = clock
	}
}

// New creates a status list client resolving issuer documents with resolver.
func New(resolver did.Resolver, opts ...Option) *Client {
	client := &Client{
		httpClient:    &http.Client{Timeout: defaultTimeout},
		resolver:      resolver,
		sigVerifier:   sigverifier.NewDefaultVerifier(),
		cacheSize:     defaultCacheSize,
		cacheTTL:      defaultCacheTTL,
		maxRetries:    defaultMaxRetries,
		retryInterval: defaultRetryInterval,
		clock:         time.Now,
	}

	for _, opt := range opts {
		opt(client)
	}

	client.cache = gcache.New(client.cacheSize).LRU().Expiration(client.cacheTTL).Build()

	return client
}

// StatusListCredential returns the verified status list credential published at url. It must be a JWT
// credential whose id is url, signed by its issuer.
func (c *Client) StatusListCredential(ctx context.Context, url string) (*verifiable.Credential, error) {
	if cached, err := c.cache.Get(credentialKey(url)); err == nil {
		return cached.(*verifiable.Credential), nil //nolint:forcetypeassert
	}

	body, err := c.fetch(ctx, url, mediaTypeVCJWT)
	if err != nil {
		return nil, err
	}

	token := strings.TrimSpace(string(body))
	if !jose.IsCompactJWS(token) {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "status list credential %s", url)
	}

	issuerDID, err := validator.ExtractIssuerFromJWT(token)
	if err != nil {
		return nil, errors.Wrapf(err, "status list credential %s", url)
	}

	doc, err := c.ResolveIssuer(issuerDID.String())
	if err != nil {
		return nil, err
	}

	decoded, err := validator.NewJWTCredentialValidator(c.sigVerifier).Validate(token, []*did.Doc{doc},
		validator.FirstError, validator.WithStatusCheck(validator.SkipAll), validator.WithClock(c.clock))
	if err != nil {
		return nil, errors.Wrapf(err, "validate status list credential %s", url)
	}

	cred := decoded.Credential

	if cred.ID != url {
		return nil, errors.Errorf("status list credential id %q is not %q", cred.ID, url)
	}

	if err = c.cache.Set(credentialKey(url), cred); err != nil {
		logger.Warnf("failed to cache status list credential %s: %v", url, err)
	}

	return cred, nil
}

// StatusListToken returns the verified token status list published at uri.
func (c *Client) StatusListToken(ctx context.Context, uri string) (*tokenstatuslist.StatusList, error) {
	if cached, err := c.cache.Get(tokenKey(uri)); err == nil {
		return cached.(*tokenstatuslist.StatusList), nil //nolint:forcetypeassert
	}

	body, err := c.fetch(ctx, uri, mediaTypeStatusList)
	if err != nil {
		return nil, err
	}

	token := strings.TrimSpace(string(body))

	tok, err := jwt.Parse(token)
	if err != nil {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "status list token %s: %v", uri, err)
	}

	kid, _ := tok.Headers.KeyID()

	signer, err := did.ParseDIDURL(kid)
	if err != nil {
		return nil, errors.Wrapf(err, "status list token %s kid", uri)
	}

	doc, err := c.ResolveIssuer(signer.DID.String())
	if err != nil {
		return nil, err
	}

	list, err := sdjwtvc.NewValidator(c.sigVerifier).ValidateStatusListToken(token, uri, []*did.Doc{doc},
		sdjwtvc.WithClock(c.clock))
	if err != nil {
		return nil, err
	}

	if err = c.cache.Set(tokenKey(uri), list); err != nil {
		logger.Warnf("failed to cache status list token %s: %v", uri, err)
	}

	return list, nil
}

// ResolveIssuer resolves and caches the document of an issuer DID.
func (c *Client) ResolveIssuer(id string) (*did.Doc, error) {
	if cached, err := c.cache.Get(docKey(id)); err == nil {
		return cached.(*did.Doc), nil //nolint:forcetypeassert
	}

	doc, err := c.resolver.Resolve(id)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve issuer %s", id)
	}

	if err = c.cache.Set(docKey(id), doc); err != nil {
		logger.Warnf("failed to cache document %s: %v", id, err)
	}

	return doc, nil
}

// ValidationOptions fetches the status list vc refers to and returns the option supplying it to the
// credential validators. Status types resolved through the issuer document need no option.
func (c *Client) ValidationOptions(ctx context.Context, vc *verifiable.Credential) ([]validator.Opt, error) {
	if vc.Status == nil {
		return nil, nil
	}

	status, err := vc.Status.ToMap()
	if err != nil {
		return nil, errors.Wrap(err, "credential status")
	}

	var url string

	switch vc.Status.Type {
	case statuslist2021.EntryType:
		url, _ = status["statusListCredential"].(string)
	case revocationlist2022.EntryType:
		url, _ = status["revocationListCredential"].(string)
	default:
		return nil, nil
	}

	if url == "" {
		return nil, errors.Errorf("%s has no status list URL", vc.Status.Type)
	}

	list, err := c.StatusListCredential(ctx, url)
	if err != nil {
		return nil, err
	}

	return []validator.Opt{validator.WithStatusListCredentials(list)}, nil
}

// SDJWTVCOptions fetches the token status list ref points to and returns the option supplying it to the SD-JWT
// VC validator.
func (c *Client) SDJWTVCOptions(ctx context.Context, ref *tokenstatuslist.Reference) ([]sdjwtvc.Opt, error) {
	if ref == nil {
		return nil, nil
	}

	list, err := c.StatusListToken(ctx, ref.URI)
	if err != nil {
		return nil, err
	}

	return []sdjwtvc.Opt{sdjwtvc.WithStatusList(ref.URI, list)}, nil
}

// fetch gets url, retrying network errors and 5xx responses.
func (c *Client) fetch(ctx context.Context, url, accept string) ([]byte, error) {
	var body []byte

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("new HTTP request: %w", err))
		}

		req.Header.Set("Accept", accept)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			logger.Debugf("fetch %s: %v", url, err)

			return fmt.Errorf("httpClient.Do: %w", err)
		}

		defer closeResponseBody(resp.Body)

		respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		switch {
		case resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("endpoint %s returned status '%d'", url, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("endpoint %s returned status '%d' and message '%s'",
				url, resp.StatusCode, respBytes))
		}

		body = respBytes

		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryInterval), c.maxRetries), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return nil, errors.Wrapf(ErrFetch, "%v", err)
	}

	return body, nil
}

func credentialKey(url string) string {
	return "credential:" + url
}

func tokenKey(uri string) string {
	return "token:" + uri
}

func docKey(id string) string {
	return "did:" + id
}

func closeResponseBody(respBody io.Closer) {
	e := respBody.Close()
	if e != nil {
		logger.Warnf("failed to close response body: %v", e)
	}
}
