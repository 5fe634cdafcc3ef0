package upload

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"mime/multipart"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rajivgeraev/rewear-api/internal/config"
	domainerrors "github.com/rajivgeraev/rewear-api/internal/errors"
	"github.com/rajivgeraev/rewear-api/internal/middleware"
	"github.com/rajivgeraev/rewear-api/internal/models"
)

// MaxFileSize предельный размер одного изображения
const MaxFileSize = 5 << 20

// UploadService загружает фотографии вещей
type UploadService struct {
	cfg      *config.Config
	uploader ImageUploader
	maxFiles int
	maxSize  int64
	now      func() time.Time
	log      zerolog.Logger
}

// NewUploadService создает новый экземпляр UploadService. uploader может быть nil,
// тогда загрузка через сервер недоступна.
func NewUploadService(cfg *config.Config, uploader ImageUploader, log zerolog.Logger) *UploadService {
	return &UploadService{
		cfg:      cfg,
		uploader: uploader,
		maxFiles: models.MaxImagesPerItem,
		maxSize:  MaxFileSize,
		now:      time.Now,
		log:      log,
	}
}

// UploadImages принимает multipart-поле images и возвращает ссылки на изображения
func (s *UploadService) UploadImages(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	if s.uploader == nil {
		return domainerrors.Internal("Загрузка изображений не настроена", nil)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return domainerrors.Validation("Ожидается multipart/form-data")
	}
	files := form.File["images"]
	if err := s.checkFiles(files); err != nil {
		return err
	}

	ctx := c.Context()
	uploaded := make([]Image, 0, len(files))
	for _, fh := range files {
		img, err := s.uploadOne(c, fh, fmt.Sprintf("%s/%s", userID, uuid.New()))
		if err != nil {
			// Удаляем то, что уже успели загрузить
			for _, done := range uploaded {
				if derr := s.uploader.Destroy(ctx, done.PublicID); derr != nil {
					s.log.Warn().Err(derr).Str("public_id", done.PublicID).Msg("Не удалось удалить изображение")
				}
			}
			s.log.Error().Err(err).Str("file", fh.Filename).Msg("Ошибка загрузки изображения")
			return domainerrors.Internal("Не удалось загрузить изображение", err)
		}
		uploaded = append(uploaded, *img)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"images": uploaded})
}

func (s *UploadService) checkFiles(files []*multipart.FileHeader) error {
	if len(files) == 0 {
		return domainerrors.Validation("Не переданы изображения")
	}
	if len(files) > s.maxFiles {
		return domainerrors.Validation(fmt.Sprintf("Можно загрузить не больше %d изображений", s.maxFiles))
	}
	for _, fh := range files {
		if fh.Size > s.maxSize {
			return domainerrors.ValidationWithDetails("Файл слишком большой", map[string]string{fh.Filename: "больше 5 МБ"})
		}
		if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			return domainerrors.ValidationWithDetails("Допускаются только изображения", map[string]string{fh.Filename: fh.Header.Get("Content-Type")})
		}
	}
	return nil
}

func (s *UploadService) uploadOne(c fiber.Ctx, fh *multipart.FileHeader, publicID string) (*Image, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.uploader.Upload(c.Context(), f, publicID)
}

// GenerateSignature создаёт подпись параметров для Cloudinary
func (s *UploadService) GenerateSignature(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}

	h := sha1.New()
	h.Write([]byte(strings.Join(parts, "&") + s.cfg.CloudinaryConfig.APISecret))
	return hex.EncodeToString(h.Sum(nil))
}

// GenerateUploadParams отдаёт подписанные параметры для загрузки напрямую в Cloudinary
func (s *UploadService) GenerateUploadParams(c fiber.Ctx) error {
	if !s.cfg.CloudinaryConfig.Enabled() {
		return domainerrors.Internal("Загрузка изображений не настроена", nil)
	}

	timestamp := fmt.Sprintf("%d", s.now().Unix())
	params := map[string]string{
		"timestamp": timestamp,
		"folder":    s.cfg.CloudinaryConfig.Folder,
	}

	return c.JSON(fiber.Map{
		"timestamp":  timestamp,
		"folder":     params["folder"],
		"signature":  s.GenerateSignature(params),
		"api_key":    s.cfg.CloudinaryConfig.APIKey,
		"cloud_name": s.cfg.CloudinaryConfig.CloudName,
	})
}
