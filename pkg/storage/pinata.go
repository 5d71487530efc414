package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

// PinataEndpoint is the Pinata pin-file API
const PinataEndpoint = "https://api.pinata.cloud/pinning/pinFileToIPFS"

// Pinata pins files through the Pinata API using a JWT
type Pinata struct {
	jwt        string
	endpoint   string
	httpClient *http.Client
	now        func() time.Time
}

type pinataResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// NewPinata creates a Pinata uploader; an empty endpoint uses the public API
func NewPinata(jwt, endpoint string) *Pinata {
	if endpoint == "" {
		endpoint = PinataEndpoint
	}
	return &Pinata{
		jwt:        jwt,
		endpoint:   endpoint,
		httpClient: newHTTPClient(),
		now:        time.Now,
	}
}

func (p *Pinata) Name() string { return ProviderPinata }

// Upload sends obj as the multipart "file" field and returns IpfsHash
func (p *Pinata) Upload(ctx context.Context, obj Object) (string, error) {
	if err := CheckCredential(p.jwt, p.now()); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	name := obj.Name
	if name == "" {
		name = "file"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create multipart file: %w", err)
	}
	if _, err := part.Write(obj.Data); err != nil {
		return "", fmt.Errorf("failed to write multipart file: %w", err)
	}

	meta, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return "", fmt.Errorf("failed to marshal pinata metadata: %w", err)
	}
	if err := writer.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", fmt.Errorf("failed to write pinata metadata: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.jwt)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	body, err := do(p.httpClient, req, "Pinata")
	if err != nil {
		return "", err
	}

	var result pinataResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse Pinata response: %w", err)
	}
	if err := ValidateCID(result.IpfsHash); err != nil {
		return "", err
	}

	return result.IpfsHash, nil
}
