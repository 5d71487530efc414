package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tech-monarch/ArtMintNFT/internal/metrics"
	"github.com/tech-monarch/ArtMintNFT/pkg/nft"
	"github.com/tech-monarch/ArtMintNFT/pkg/types"
)

// Publish uploads the image, then a metadata document that embeds ipfs://<imageCid>.
// Both uploads complete before a receipt is returned; any failure wraps ErrUploadFailed.
func Publish(ctx context.Context, up Uploader, intent types.MintIntent, imageName string, image []byte) (*types.StorageReceipt, error) {
	if up == nil {
		return nil, fmt.Errorf("%w: no storage provider configured", ErrUploadFailed)
	}

	logger.WithFields(logrus.Fields{
		"provider": up.Name(),
		"file":     imageName,
		"bytes":    len(image),
	}).Info("📦 Uploading image")

	imageCID, err := timedUpload(ctx, up, "image", Object{
		Name:        imageName,
		ContentType: http.DetectContentType(image),
		Data:        image,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: image: %w", ErrUploadFailed, err)
	}

	metadata := nft.BuildMetadata(intent, imageCID)
	doc, err := metadata.JSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	logger.WithField("image_cid", imageCID).Info("📦 Uploading metadata")
	metadataCID, err := timedUpload(ctx, up, "metadata", Object{
		Name:        "metadata.json",
		ContentType: "application/json",
		Data:        doc,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %w", ErrUploadFailed, err)
	}

	receipt := &types.StorageReceipt{
		Provider:    up.Name(),
		ImageCID:    imageCID,
		MetadataCID: metadataCID,
		TokenURI:    nft.IPFSURI(metadataCID),
	}

	logger.WithFields(logrus.Fields{
		"image_cid":    imageCID,
		"metadata_cid": metadataCID,
	}).Info("✅ Uploaded to storage")

	return receipt, nil
}

// Placeholder is the receipt used when storage is bypassed
func Placeholder(uri string) *types.StorageReceipt {
	if uri == "" {
		uri = DefaultPlaceholderURI
	}
	return &types.StorageReceipt{
		Provider: ProviderNone,
		TokenURI: uri,
	}
}

func timedUpload(ctx context.Context, up Uploader, kind string, obj Object) (string, error) {
	start := time.Now()
	c, err := up.Upload(ctx, obj)
	metrics.UploadDuration.WithLabelValues(up.Name(), kind).Observe(time.Since(start).Seconds())
	if err == nil {
		err = ValidateCID(c)
	}
	if err != nil {
		metrics.UploadFailures.WithLabelValues(up.Name(), kind).Inc()
		return "", err
	}
	return c, nil
}
