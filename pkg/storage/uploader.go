package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/sirupsen/logrus"
)

// Provider names accepted by New
const (
	ProviderNFTStorage = "nftstorage"
	ProviderPinata     = "pinata"
	ProviderLocal      = "local"
	ProviderNone       = "none"
)

const (
	// DefaultGateway resolves ipfs:// identifiers over HTTP
	DefaultGateway = "https://ipfs.io/ipfs/{cid}"

	// DefaultPlaceholderURI is the token URI used when storage is bypassed
	DefaultPlaceholderURI = "local-metadata.json"
)

var (
	ErrUploadFailed      = errors.New("upload failed")
	ErrInvalidCID        = errors.New("backend returned an invalid content identifier")
	ErrMissingCredential = errors.New("storage credential not set")
	ErrCredentialExpired = errors.New("storage credential expired")
	ErrUnknownProvider   = errors.New("unknown storage provider")
)

var logger = logrus.WithField("component", "storage")

// Object is one payload pushed to the storage backend
type Object struct {
	Name        string
	ContentType string
	Data        []byte
}

// Uploader pushes bytes to a content-addressed backend
type Uploader interface {
	Name() string
	Upload(ctx context.Context, obj Object) (string, error)
}

// Options selects and configures an Uploader
type Options struct {
	Provider string
	APIKey   string // NFT.storage key or Pinata JWT
	Endpoint string // optional override of the provider URL
	LocalDir string
}

// New builds the uploader named by opts.Provider.
// ProviderNone returns a nil Uploader: the caller mints with a placeholder URI.
func New(opts Options) (Uploader, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case ProviderNFTStorage, "":
		return NewNFTStorage(opts.APIKey, opts.Endpoint), nil
	case ProviderPinata:
		return NewPinata(opts.APIKey, opts.Endpoint), nil
	case ProviderLocal:
		return NewLocalStore(opts.LocalDir)
	case ProviderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, opts.Provider)
	}
}

// ValidateCID checks that s parses as a CID
func ValidateCID(s string) error {
	if _, err := cid.Decode(s); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidCID, s, err)
	}
	return nil
}

// GatewayURL resolves an identifier through an HTTP gateway template.
// The template may contain {cid}; otherwise the identifier is appended.
func GatewayURL(template, c string) string {
	if template == "" {
		template = DefaultGateway
	}
	c = strings.TrimPrefix(c, "ipfs://")
	if strings.Contains(template, "{cid}") {
		return strings.ReplaceAll(template, "{cid}", c)
	}
	return strings.TrimRight(template, "/") + "/" + c
}
