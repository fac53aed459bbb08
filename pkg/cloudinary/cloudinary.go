package cloudinary

import (
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2/asset"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Client builds delivery URLs for files stored in Cloudinary.
type Client interface {
	// SignedURL returns a signed URL for an asset uploaded with the authenticated delivery type.
	SignedURL(publicID string) (string, error)
	// CoverURL returns a public, resized delivery URL for a cover image.
	CoverURL(publicID string) (string, error)
}

// CoverWidth is the delivered width of cover images in pixels.
const CoverWidth = 600

type clientImpl struct {
	cloudName string
	cfg       *config.Configuration
}

// NewClientFromParams builds a Client from Cloudinary cloud name, API key, and secret.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	cfg.URL.Secure = true
	return &clientImpl{
		cloudName: cloudName,
		cfg:       cfg,
	}, nil
}

// SignedURL signs the delivery URL so the public id cannot be swapped for another asset.
// PDFs are image resources in Cloudinary; keep the extension in publicID.
func (c *clientImpl) SignedURL(publicID string) (string, error) {
	publicID = strings.TrimPrefix(strings.TrimSpace(publicID), "/")
	if publicID == "" {
		return "", fmt.Errorf("cloudinary: empty public id")
	}
	a, err := asset.Image(publicID, c.cfg)
	if err != nil {
		return "", err
	}
	a.DeliveryType = "authenticated"
	a.Config.URL.SignURL = true
	return a.String()
}

func (c *clientImpl) CoverURL(publicID string) (string, error) {
	publicID = strings.TrimPrefix(strings.TrimSpace(publicID), "/")
	if publicID == "" {
		return "", fmt.Errorf("cloudinary: empty public id")
	}
	a, err := asset.Image(publicID, c.cfg)
	if err != nil {
		return "", err
	}
	a.Transformation = fmt.Sprintf("q_auto,f_auto,w_%d,c_fill", CoverWidth)
	return a.String()
}
