package upload

import (
	"context"
	"errors"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/rajivgeraev/rewear-api/internal/config"
)

// Image загруженное изображение
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// ImageUploader сохраняет изображения во внешнем хранилище
type ImageUploader interface {
	Upload(ctx context.Context, file io.Reader, publicID string) (*Image, error)
	Destroy(ctx context.Context, publicID string) error
}

// CloudinaryUploader загружает изображения в Cloudinary
type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

var _ ImageUploader = (*CloudinaryUploader)(nil)

// NewCloudinaryUploader создаёт клиент Cloudinary по ключам из конфигурации
func NewCloudinaryUploader(cfg config.CloudinaryConfig) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, err
	}
	return &CloudinaryUploader{cld: cld, folder: cfg.Folder}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, file io.Reader, publicID string) (*Image, error) {
	res, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:   u.folder,
		PublicID: publicID,
	})
	if err != nil {
		return nil, err
	}
	if res.Error.Message != "" {
		return nil, errors.New(res.Error.Message)
	}
	return &Image{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

func (u *CloudinaryUploader) Destroy(ctx context.Context, publicID string) error {
	res, err := u.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return err
	}
	if res.Error.Message != "" {
		return errors.New(res.Error.Message)
	}
	return nil
}
