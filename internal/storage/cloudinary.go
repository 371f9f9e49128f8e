package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// Cloudinary uploads to a Cloudinary account and returns the secure URL.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinary builds an uploader from a CLOUDINARY_URL value.
func NewCloudinary(url, folder string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, err
	}
	return &Cloudinary{cld: cld, folder: folder}, nil
}

func (c *Cloudinary) Save(ctx context.Context, k Kind, filename string, r io.Reader) (string, error) {
	publicID := uuid.NewString()
	if k.ResourceType == "raw" {
		// raw assets keep their extension in the public id
		publicID += strings.ToLower(filepath.Ext(filename))
	}
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       c.folder + "/" + k.Folder,
		PublicID:     publicID,
		ResourceType: k.ResourceType,
	})
	if err != nil {
		return "", err
	}
	return res.SecureURL, nil
}
