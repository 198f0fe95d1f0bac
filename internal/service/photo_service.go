package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"agro-crm/internal/apierror"
	"agro-crm/internal/blob"
	"agro-crm/internal/database"
	"agro-crm/internal/dto"
	"agro-crm/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PhotoUpload is one file of a multipart upload with its parallel form values.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Caption     string
	Latitude    *float64
	Longitude   *float64
}

type PhotoService struct {
	db     *gorm.DB
	store  blob.Store
	urls   PhotoURLs
	render *Renderer
}

func NewPhotoService(db *gorm.DB, store blob.Store, render *Renderer) *PhotoService {
	return &PhotoService{db: db, store: store, urls: render.URLs, render: render}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeFilename keeps a safe base name and defaults to a .jpg extension.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Trim(unsafeName.ReplaceAllString(name, "_"), "._")
	if name == "" {
		name = "photo"
	}
	if !strings.Contains(name, ".") {
		name += ".jpg"
	}
	return name
}

// PhotoKey is the object key of an uploaded photo.
func PhotoKey(visitID uint, filename string) string {
	return fmt.Sprintf("visits/%d/%s_%s", visitID, strings.ReplaceAll(uuid.NewString(), "-", ""), sanitizeFilename(filename))
}

// Upload stores every file, then records one photo row per file. On any
// failure the objects already written are removed and the error returned.
func (s *PhotoService) Upload(ctx context.Context, actor *uint, visitID uint, files []PhotoUpload) (*dto.UploadPhotosResponse, error) {
	if len(files) == 0 {
		return nil, apierror.Validation("no files sent")
	}
	if err := mustExist[models.Visit](ctx, s.db, "visit", visitID); err != nil {
		return nil, err
	}

	photos := make([]models.Photo, 0, len(files))
	var written []string
	for _, f := range files {
		key := PhotoKey(visitID, f.Filename)
		ct := f.ContentType
		if ct == "" {
			ct = "image/jpeg"
		}
		info, err := s.store.Put(ctx, key, f.Body, ct)
		if err != nil {
			removeBlobs(ctx, s.store, written)
			return nil, fmt.Errorf("store photo %q: %w", f.Filename, err)
		}
		written = append(written, key)
		photos = append(photos, models.Photo{
			VisitID:   visitID,
			URL:       s.urls.Stored(key),
			Key:       key,
			Caption:   strings.TrimSpace(f.Caption),
			Latitude:  f.Latitude,
			Longitude: f.Longitude,
			Meta: datatypes.JSONMap{
				"content_type":  ct,
				"size":          info.Size,
				"original_name": f.Filename,
				"driver":        string(s.store.Driver()),
			},
		})
	}

	if err := s.db.WithContext(ctx).Create(&photos).Error; err != nil {
		removeBlobs(ctx, s.store, written)
		return nil, fmt.Errorf("record photos: %w", err)
	}

	database.CreateAuditLog(ctx, s.db, actor, "visit", visitID, "photos_upload", fmt.Sprintf("%d photo(s)", len(photos)))
	out := &dto.UploadPhotosResponse{
		Message: fmt.Sprintf("%d photo(s) saved", len(photos)),
		Photos:  make([]dto.PhotoResponse, 0, len(photos)),
	}
	for i := range photos {
		out.Photos = append(out.Photos, s.render.Photo(&photos[i]))
	}
	return out, nil
}

func (s *PhotoService) List(ctx context.Context, visitID uint) ([]dto.PhotoResponse, error) {
	if err := mustExist[models.Visit](ctx, s.db, "visit", visitID); err != nil {
		return nil, err
	}
	var photos []models.Photo
	if err := s.db.WithContext(ctx).Where("visit_id = ?", visitID).Order("id ASC").Find(&photos).Error; err != nil {
		return nil, err
	}
	out := make([]dto.PhotoResponse, 0, len(photos))
	for i := range photos {
		out = append(out, s.render.Photo(&photos[i]))
	}
	return out, nil
}

func (s *PhotoService) UpdateCaption(ctx context.Context, actor *uint, id uint, caption string) (*dto.PhotoResponse, error) {
	var p models.Photo
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, "photo")
	}
	p.Caption = strings.TrimSpace(caption)
	if err := s.db.WithContext(ctx).Model(&p).Update("caption", p.Caption).Error; err != nil {
		return nil, err
	}
	database.CreateAuditLog(ctx, s.db, actor, "photo", id, "update", "caption")
	out := s.render.Photo(&p)
	return &out, nil
}

func (s *PhotoService) Delete(ctx context.Context, actor *uint, id uint) error {
	var p models.Photo
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return notFound(err, "photo")
	}
	if err := s.db.WithContext(ctx).Delete(&p).Error; err != nil {
		return err
	}
	if p.Key != "" {
		removeBlobs(ctx, s.store, []string{p.Key})
	}
	database.CreateAuditLog(ctx, s.db, actor, "photo", id, "delete", "")
	return nil
}

// DeleteAll removes every photo of a visit and returns how many were removed.
func (s *PhotoService) DeleteAll(ctx context.Context, actor *uint, visitID uint) (int, error) {
	if err := mustExist[models.Visit](ctx, s.db, "visit", visitID); err != nil {
		return 0, err
	}
	var photos []models.Photo
	if err := s.db.WithContext(ctx).Where("visit_id = ?", visitID).Find(&photos).Error; err != nil {
		return 0, err
	}
	if len(photos) == 0 {
		return 0, nil
	}
	if err := s.db.WithContext(ctx).Where("visit_id = ?", visitID).Delete(&models.Photo{}).Error; err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(photos))
	for _, p := range photos {
		if p.Key != "" {
			keys = append(keys, p.Key)
		}
	}
	removeBlobs(ctx, s.store, keys)
	database.CreateAuditLog(ctx, s.db, actor, "visit", visitID, "photos_delete", fmt.Sprintf("%d photo(s)", len(photos)))
	return len(photos), nil
}

// Open streams a stored object for GET /uploads/*key.
func (s *PhotoService) Open(ctx context.Context, key string) (blob.Info, io.ReadCloser, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return blob.Info{}, nil, apierror.NotFound("file")
	}
	info, rc, err := s.store.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return blob.Info{}, nil, apierror.NotFound("file")
	}
	return info, rc, err
}

// ReadImage loads a photo's bytes for report rendering. Photos stored before
// keys were recorded are not readable and yield nil.
func (s *PhotoService) ReadImage(ctx context.Context, p *models.Photo) []byte {
	if p.Key == "" {
		return nil
	}
	_, rc, err := s.store.Get(ctx, p.Key)
	if err != nil {
		log.Warn().Err(err).Str("key", p.Key).Msg("photo unavailable for report")
		return nil
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		log.Warn().Err(err).Str("key", p.Key).Msg("photo read failed")
		return nil
	}
	return data
}
