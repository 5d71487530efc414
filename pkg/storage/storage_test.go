package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech-monarch/ArtMintNFT/pkg/nft"
	"github.com/tech-monarch/ArtMintNFT/pkg/types"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func testIntent(data []byte) types.MintIntent {
	return types.MintIntent{
		Title:       "Harbour",
		Artist:      "J. Doe",
		Description: "scan",
		AssetHash:   nft.HashBytes(data),
		CreatedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func mustCID(t *testing.T, data []byte) string {
	t.Helper()
	c, err := nft.ComputeCID(data)
	require.NoError(t, err)
	return c
}

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "pinata-user",
		"exp": exp.Unix(),
	})
	s, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestCheckCredential(t *testing.T) {
	now := time.Now()

	assert.ErrorIs(t, CheckCredential("", now), ErrMissingCredential)
	assert.ErrorIs(t, CheckCredential("   ", now), ErrMissingCredential)
	assert.NoError(t, CheckCredential("opaque-nft-storage-key", now))
	assert.NoError(t, CheckCredential(signedJWT(t, now.Add(time.Hour)), now))
	assert.ErrorIs(t, CheckCredential(signedJWT(t, now.Add(-time.Hour)), now), ErrCredentialExpired)
}

func TestNFTStorage_Upload(t *testing.T) {
	data := []byte("image bytes")
	want := mustCID(t, data)

	var gotAuth, gotType, gotUA string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotUA = r.Header.Get("User-Agent")
		gotBody, _ = io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":    true,
			"value": map[string]string{"cid": want},
		})
	}))
	defer server.Close()

	up := NewNFTStorage("key-123", server.URL)
	got, err := up.Upload(context.Background(), Object{Name: "a.png", ContentType: "image/png", Data: data})
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, "Bearer key-123", gotAuth)
	assert.Equal(t, "image/png", gotType)
	assert.True(t, strings.HasPrefix(gotUA, "artmint/"))
	assert.Equal(t, data, gotBody)
}

func TestNFTStorage_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "nested error message",
			status:  http.StatusBadRequest,
			body:    `{"ok": false, "error": {"name": "HTTPError", "message": "payload too large"}}`,
			wantErr: "payload too large",
		},
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"ok": false, "error": {"message": "API Key is malformed"}}`,
			wantErr: "rejected credential",
		},
		{
			name:    "not ok with 200",
			status:  http.StatusOK,
			body:    `{"ok": false}`,
			wantErr: "response not ok",
		},
		{
			name:    "invalid cid",
			status:  http.StatusOK,
			body:    `{"ok": true, "value": {"cid": "not-a-cid"}}`,
			wantErr: "invalid content identifier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewNFTStorage("key", server.URL).Upload(context.Background(), Object{Data: []byte("x")})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNFTStorage_MissingKeyMakesNoRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	_, err := NewNFTStorage("", server.URL).Upload(context.Background(), Object{Data: []byte("x")})
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.False(t, called)
}

func TestPinata_Upload(t *testing.T) {
	data := pngHeader
	want := mustCID(t, data)
	token := signedJWT(t, time.Now().Add(time.Hour))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		assert.Equal(t, data, body)
		assert.Equal(t, "art.png", header.Filename)
		assert.Contains(t, r.FormValue("pinataMetadata"), `"art.png"`)

		json.NewEncoder(w).Encode(map[string]interface{}{"IpfsHash": want, "PinSize": len(data)})
	}))
	defer server.Close()

	got, err := NewPinata(token, server.URL).Upload(context.Background(), Object{Name: "art.png", ContentType: "image/png", Data: data})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPinata_ExpiredJWT(t *testing.T) {
	_, err := NewPinata(signedJWT(t, time.Now().Add(-time.Minute)), "http://127.0.0.1:1").Upload(context.Background(), Object{Data: []byte("x")})
	assert.ErrorIs(t, err, ErrCredentialExpired)
}

func TestLocalStore(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	data := []byte("artwork")
	c, err := store.Upload(context.Background(), Object{Data: data})
	require.NoError(t, err)
	assert.Equal(t, mustCID(t, data), c)

	again, err := store.Upload(context.Background(), Object{Data: data})
	require.NoError(t, err)
	assert.Equal(t, c, again)

	stored, err := store.Get(c)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestPublish_LinksMetadataToImage(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	image := pngHeader
	intent := testIntent(image)

	receipt, err := Publish(context.Background(), store, intent, "art.png", image)
	require.NoError(t, err)

	assert.Equal(t, ProviderLocal, receipt.Provider)
	assert.Equal(t, mustCID(t, image), receipt.ImageCID)
	assert.Equal(t, "ipfs://"+receipt.MetadataCID, receipt.TokenURI)
	assert.False(t, receipt.IsPlaceholder())

	doc, err := store.Get(receipt.MetadataCID)
	require.NoError(t, err)

	var metadata nft.Metadata
	require.NoError(t, json.Unmarshal(doc, &metadata))
	assert.Equal(t, "ipfs://"+receipt.ImageCID, metadata.Image)
	assert.Equal(t, intent.AssetHash, metadata.Properties.SHA256)

	// A third party can verify the binding from the fetched image alone
	fetched, err := store.Get(receipt.ImageCID)
	require.NoError(t, err)
	assert.Equal(t, metadata.Properties.SHA256, nft.HashBytes(fetched))
}

type failingUploader struct {
	failOn int
	calls  int
}

func (f *failingUploader) Name() string { return "failing" }

func (f *failingUploader) Upload(ctx context.Context, obj Object) (string, error) {
	f.calls++
	if f.calls == f.failOn {
		return "", errors.New("backend unreachable")
	}
	return nft.ComputeCID(obj.Data)
}

func TestPublish_Failures(t *testing.T) {
	image := []byte("img")

	for _, failOn := range []int{1, 2} {
		up := &failingUploader{failOn: failOn}
		receipt, err := Publish(context.Background(), up, testIntent(image), "a.png", image)
		assert.Nil(t, receipt)
		assert.ErrorIs(t, err, ErrUploadFailed)
		assert.Equal(t, failOn, up.calls)
	}

	_, err := Publish(context.Background(), nil, testIntent(image), "a.png", image)
	assert.ErrorIs(t, err, ErrUploadFailed)
}

func TestPlaceholderAndGateway(t *testing.T) {
	receipt := Placeholder("")
	assert.Equal(t, DefaultPlaceholderURI, receipt.TokenURI)
	assert.True(t, receipt.IsPlaceholder())

	assert.Equal(t, "https://ipfs.io/ipfs/bafy", GatewayURL("", "bafy"))
	assert.Equal(t, "https://ipfs.io/ipfs/bafy", GatewayURL("", "ipfs://bafy"))
	assert.Equal(t, "https://gateway.pinata.cloud/ipfs/bafy", GatewayURL("https://gateway.pinata.cloud/ipfs/", "bafy"))
}

func TestNew(t *testing.T) {
	up, err := New(Options{Provider: "pinata", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderPinata, up.Name())

	up, err = New(Options{Provider: "none"})
	require.NoError(t, err)
	assert.Nil(t, up)

	_, err = New(Options{Provider: "s3"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
