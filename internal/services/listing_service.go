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

// ListingService manages agent service listings.
type ListingService struct {
	Listings *repos.AgentServiceRepo
	Users    *repos.UserRepo
	Services *repos.ServiceRepo
	Files    storage.Store
}

func NewListingService(listings *repos.AgentServiceRepo, users *repos.UserRepo, services *repos.ServiceRepo, files storage.Store) *ListingService {
	return &ListingService{Listings: listings, Users: users, Services: services, Files: files}
}

type ListingInput struct {
	UserID           string                `json:"user_id" form:"user_id"`
	ServiceName      string                `json:"service_name" form:"service_name"`
	ShortDescription string                `json:"short_description" form:"short_description"`
	MessageNumber    string                `json:"message_number" form:"message_number"`
	PhoneNumber      string                `json:"phone_number" form:"phone_number"`
	CategoryID       string                `json:"category_id" form:"category_id"`
	Hours            string                `json:"hours" form:"hours"`
	FeaturedImage    *multipart.FileHeader `json:"-" form:"-"`
	BannerImage      *multipart.FileHeader `json:"-" form:"-"`
}

func (s *ListingService) validate(ctx context.Context, in *ListingInput) error {
	v := validate.Errors{}
	in.UserID = v.Required("user_id", in.UserID, 64)
	in.ServiceName = v.Required("service_name", in.ServiceName, validate.MaxString)
	in.ShortDescription = strings.TrimSpace(in.ShortDescription)
	if len(in.ShortDescription) > 1000 {
		v.Add("short_description", "The short description field is too long.")
	}
	for field, p := range map[string]*string{"phone_number": &in.PhoneNumber, "message_number": &in.MessageNumber} {
		*p = strings.TrimSpace(*p)
		if *p == "" {
			continue
		}
		if _, ok := validate.Phone(*p); !ok {
			v.Add(field, "The "+strings.ReplaceAll(field, "_", " ")+" field format is invalid.")
		}
	}
	in.Hours = strings.TrimSpace(in.Hours)
	if len(in.Hours) > validate.MaxString {
		v.Add("hours", "The hours field is too long.")
	}
	if in.FeaturedImage != nil && !validate.Image(in.FeaturedImage) {
		v.Add("featured_image", msgImageInvalid)
	}
	if in.BannerImage != nil && !validate.Image(in.BannerImage) {
		v.Add("banner_image", msgImageInvalid)
	}

	if in.UserID != "" {
		u, err := s.Users.ByID(ctx, in.UserID)
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			v.Add("user_id", "The selected user id is invalid.")
		case err != nil:
			return err
		case !u.HasRole(domain.RoleAgent):
			v.Add("user_id", "The selected user is not an agent.")
		}
	}
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	if in.CategoryID != "" {
		_, err := s.Services.Get(ctx, in.CategoryID)
		switch {
		case errors.Is(err, domain.ErrServiceNotFound):
			v.Add("category_id", "The selected category id is invalid.")
		case err != nil:
			return err
		}
	}
	return v.Err()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// putImages stores the supplied images and returns their references. On
// failure anything already stored is removed.
func (s *ListingService) putImages(ctx context.Context, in ListingInput) (featured, banner *string, err error) {
	if in.FeaturedImage != nil {
		ref, err := s.Files.Put(ctx, storage.AgentServiceImages, in.FeaturedImage)
		if err != nil {
			return nil, nil, errors.Annotate(err, "storing featured image")
		}
		featured = &ref
	}
	if in.BannerImage != nil {
		ref, err := s.Files.Put(ctx, storage.AgentServiceImages, in.BannerImage)
		if err != nil {
			s.discard(ctx, featured)
			return nil, nil, errors.Annotate(err, "storing banner image")
		}
		banner = &ref
	}
	return featured, banner, nil
}

func (s *ListingService) Create(ctx context.Context, in ListingInput) (*domain.AgentService, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	featured, banner, err := s.putImages(ctx, in)
	if err != nil {
		return nil, err
	}
	a := &domain.AgentService{
		ID:               uuid.NewString(),
		UserID:           in.UserID,
		ServiceName:      in.ServiceName,
		ShortDescription: in.ShortDescription,
		MessageNumber:    in.MessageNumber,
		PhoneNumber:      in.PhoneNumber,
		FeaturedImage:    featured,
		BannerImage:      banner,
		CategoryID:       optional(in.CategoryID),
		Hours:            in.Hours,
	}
	if err := s.Listings.Create(ctx, a); err != nil {
		s.discard(ctx, featured)
		s.discard(ctx, banner)
		return nil, err
	}
	return a, nil
}

func (s *ListingService) List(ctx context.Context, userID string) ([]domain.AgentService, error) {
	return s.Listings.List(ctx, strings.TrimSpace(userID))
}

func (s *ListingService) Get(ctx context.Context, id string) (*domain.AgentService, error) {
	return s.Listings.Get(ctx, id)
}

// Update replaces the text fields of a listing; images are only replaced
// when new files are supplied.
func (s *ListingService) Update(ctx context.Context, id string, in ListingInput) (*domain.AgentService, error) {
	a, err := s.Listings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	featured, banner, err := s.putImages(ctx, in)
	if err != nil {
		return nil, err
	}
	oldFeatured, oldBanner := a.FeaturedImage, a.BannerImage

	a.UserID = in.UserID
	a.ServiceName = in.ServiceName
	a.ShortDescription = in.ShortDescription
	a.MessageNumber = in.MessageNumber
	a.PhoneNumber = in.PhoneNumber
	a.CategoryID = optional(in.CategoryID)
	a.Hours = in.Hours
	if featured != nil {
		a.FeaturedImage = featured
	}
	if banner != nil {
		a.BannerImage = banner
	}
	if err := s.Listings.Update(ctx, a); err != nil {
		s.discard(ctx, featured)
		s.discard(ctx, banner)
		return nil, err
	}
	if featured != nil {
		s.discard(ctx, oldFeatured)
	}
	if banner != nil {
		s.discard(ctx, oldBanner)
	}
	return a, nil
}

func (s *ListingService) Delete(ctx context.Context, id string) error {
	a, err := s.Listings.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Listings.Delete(ctx, id); err != nil {
		return err
	}
	s.discard(ctx, a.FeaturedImage)
	s.discard(ctx, a.BannerImage)
	return nil
}

func (s *ListingService) discard(ctx context.Context, ref *string) {
	if err := storage.DeleteQuietly(ctx, s.Files, ref); err != nil {
		applog.Error(nil, "storage.cleanup.fail", err, map[string]any{"ref": *ref})
	}
}
