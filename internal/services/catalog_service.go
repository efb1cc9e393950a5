package services

import (
	"context"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"

	"marketadmin/internal/domain"
	applog "marketadmin/internal/log"
	"marketadmin/internal/repos"
	"marketadmin/internal/storage"
	"marketadmin/internal/validate"
)

const (
	msgCategoryTypeInvalid = "The selected category type is invalid."
	msgImageInvalid        = "The image must be a file of type: jpeg, png, jpg, gif, svg, at most 2048 kilobytes."
)

type CatalogService struct {
	Services *repos.ServiceRepo
	Files    storage.Store
}

func NewCatalogService(services *repos.ServiceRepo, files storage.Store) *CatalogService {
	return &CatalogService{Services: services, Files: files}
}

// ServiceInput carries create/update fields. Image is nil when no file was
// uploaded.
type ServiceInput struct {
	CategoryName string                `json:"category_name" form:"category_name"`
	CategoryType string                `json:"category_type" form:"category_type"`
	Image        *multipart.FileHeader `json:"-" form:"-"`
}

func (in *ServiceInput) validate() (domain.CategoryType, error) {
	v := validate.Errors{}
	in.CategoryName = v.Required("category_name", in.CategoryName, validate.MaxString)
	ct, ok := validate.CategoryType(in.CategoryType)
	if !ok {
		v.Add("category_type", msgCategoryTypeInvalid)
	}
	if in.Image != nil && !validate.Image(in.Image) {
		v.Add("image", msgImageInvalid)
	}
	return ct, v.Err()
}

func categoryNameTaken() error {
	v := validate.Errors{}
	v.Taken("category_name")
	return v
}

// Create stores the image, if any, before inserting the row. When the insert
// fails the stored file is removed again.
func (s *CatalogService) Create(ctx context.Context, in ServiceInput) (*domain.Service, error) {
	ct, err := in.validate()
	if err != nil {
		return nil, err
	}
	svc := &domain.Service{ID: uuid.NewString(), CategoryName: in.CategoryName, CategoryType: ct}
	if in.Image != nil {
		ref, err := s.Files.Put(ctx, storage.ServiceImages, in.Image)
		if err != nil {
			return nil, errors.Annotate(err, "storing service image")
		}
		svc.Image = &ref
	}
	if err := s.Services.Create(ctx, svc); err != nil {
		s.discard(ctx, svc.Image)
		if repos.IsUniqueViolation(err) {
			return nil, categoryNameTaken()
		}
		return nil, errors.Trace(err)
	}
	return svc, nil
}

// ListByCategory returns the services of a category type. ok is false when
// raw is not exactly a known category type.
func (s *CatalogService) ListByCategory(ctx context.Context, raw string) ([]domain.Service, bool, error) {
	t := domain.CategoryType(raw)
	if !t.Valid() {
		return nil, false, nil
	}
	out, err := s.Services.ListByType(ctx, t)
	return out, true, err
}

func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Service, error) {
	return s.Services.Get(ctx, id)
}

// Update renames the service and applies category_type and image when
// supplied. The unique index on category_name excludes the row itself.
func (s *CatalogService) Update(ctx context.Context, id string, in ServiceInput) (*domain.Service, error) {
	keepType := strings.TrimSpace(in.CategoryType) == ""
	ct, err := in.validate()
	if err != nil {
		return nil, err
	}
	svc, err := s.Services.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	svc.CategoryName = in.CategoryName
	if !keepType {
		svc.CategoryType = ct
	}
	oldImage := svc.Image
	if in.Image != nil {
		ref, err := s.Files.Put(ctx, storage.ServiceImages, in.Image)
		if err != nil {
			return nil, errors.Annotate(err, "storing service image")
		}
		svc.Image = &ref
	}
	if err := s.Services.Update(ctx, svc); err != nil {
		if in.Image != nil {
			s.discard(ctx, svc.Image)
		}
		if repos.IsUniqueViolation(err) {
			return nil, categoryNameTaken()
		}
		return nil, err
	}
	if in.Image != nil {
		s.discard(ctx, oldImage)
	}
	return svc, nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	svc, err := s.Services.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Services.Delete(ctx, id); err != nil {
		return err
	}
	s.discard(ctx, svc.Image)
	return nil
}

func (s *CatalogService) discard(ctx context.Context, ref *string) {
	if err := storage.DeleteQuietly(ctx, s.Files, ref); err != nil {
		applog.Error(nil, "storage.cleanup.fail", err, map[string]any{"ref": *ref})
	}
}
