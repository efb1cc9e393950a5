package services_test

import (
	"context"
	"testing"

	"github.com/juju/errors"

	"marketadmin/internal/domain"
	"marketadmin/internal/repos"
	"marketadmin/internal/services"
	"marketadmin/internal/validate"
)

func newCatalog(t *testing.T) (*services.CatalogService, *memStore) {
	t.Helper()
	files := newMemStore()
	return services.NewCatalogService(repos.NewServiceRepo(memdb(t)), files), files
}

func TestCatalog_PlumbingScenario(t *testing.T) {
	svc, files := newCatalog(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, services.ServiceInput{
		CategoryName: "Plumbing",
		CategoryType: "popular",
		Image:        image("pipe.png", 1024),
	})
	if err != nil {
		t.Fatal(err)
	}
	if created.Image == nil || files.count() != 1 {
		t.Fatalf("image not stored: %+v", created)
	}

	popular, ok, err := svc.ListByCategory(ctx, "popular")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if len(popular) != 1 || popular[0].CategoryName != "Plumbing" {
		t.Fatalf("popular = %+v", popular)
	}
	normal, ok, _ := svc.ListByCategory(ctx, "normal")
	if !ok || len(normal) != 0 {
		t.Fatalf("normal = %+v", normal)
	}

	if _, err := svc.Create(ctx, services.ServiceInput{CategoryName: "Plumbing"}); err == nil {
		t.Fatal("duplicate name accepted")
	} else {
		var ve validate.Errors
		if !errors.As(err, &ve) || len(ve["category_name"]) == 0 {
			t.Fatalf("expected category_name error, got %v", err)
		}
	}
}

func TestCatalog_DuplicateRemovesStoredImage(t *testing.T) {
	svc, files := newCatalog(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, services.ServiceInput{CategoryName: "Cleaning"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Create(ctx, services.ServiceInput{CategoryName: "Cleaning", Image: image("mop.jpg", 10)})
	if err == nil {
		t.Fatal("duplicate accepted")
	}
	if files.count() != 0 || len(files.deleted) != 1 {
		t.Fatalf("orphaned upload: files=%v deleted=%v", files.files, files.deleted)
	}
}

func TestCatalog_CreateDefaultsAndValidation(t *testing.T) {
	svc, files := newCatalog(t)
	ctx := context.Background()

	s, err := svc.Create(ctx, services.ServiceInput{CategoryName: "  Gardening "})
	if err != nil {
		t.Fatal(err)
	}
	if s.CategoryName != "Gardening" || s.CategoryType != domain.CategoryNormal || s.Image != nil {
		t.Fatalf("unexpected service: %+v", s)
	}

	_, err = svc.Create(ctx, services.ServiceInput{CategoryName: "", CategoryType: "weird", Image: image("x.exe", 10)})
	var ve validate.Errors
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, f := range []string{"category_name", "category_type", "image"} {
		if len(ve[f]) == 0 {
			t.Errorf("missing %s error: %v", f, ve)
		}
	}
	if files.count() != 0 {
		t.Fatal("invalid input must not store files")
	}
}

func TestCatalog_ListByCategoryRejectsUnknown(t *testing.T) {
	svc, _ := newCatalog(t)
	for _, raw := range []string{"", "featured", "POPULAR", " popular", "popular\t"} {
		if _, ok, err := svc.ListByCategory(context.Background(), raw); ok || err != nil {
			t.Fatalf("%q: ok=%v err=%v", raw, ok, err)
		}
	}
}

func TestCatalog_UpdateSameNameAndReplaceImage(t *testing.T) {
	svc, files := newCatalog(t)
	ctx := context.Background()

	s, err := svc.Create(ctx, services.ServiceInput{CategoryName: "Painting", CategoryType: "most_demanding", Image: image("a.png", 10)})
	if err != nil {
		t.Fatal(err)
	}
	oldRef := *s.Image

	up, err := svc.Update(ctx, s.ID, services.ServiceInput{CategoryName: "Painting", Image: image("b.png", 10)})
	if err != nil {
		t.Fatalf("same-name update rejected: %v", err)
	}
	if up.CategoryType != domain.CategoryMostDemanding {
		t.Fatalf("category type should be kept, got %s", up.CategoryType)
	}
	if *up.Image == oldRef || files.count() != 1 {
		t.Fatalf("image not replaced: %v files=%v", *up.Image, files.files)
	}
	if len(files.deleted) != 1 || files.deleted[0] != oldRef {
		t.Fatalf("old image not removed: %v", files.deleted)
	}
}

func TestCatalog_UpdateConflictsAndMissing(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, services.ServiceInput{CategoryName: "Roofing"}); err != nil {
		t.Fatal(err)
	}
	b, err := svc.Create(ctx, services.ServiceInput{CategoryName: "Tiling"})
	if err != nil {
		t.Fatal(err)
	}
	var ve validate.Errors
	if _, err := svc.Update(ctx, b.ID, services.ServiceInput{CategoryName: "Roofing"}); !errors.As(err, &ve) {
		t.Fatalf("rename onto existing name: got %v", err)
	}
	if _, err := svc.Update(ctx, "missing", services.ServiceInput{CategoryName: "X"}); !errors.Is(err, domain.ErrServiceNotFound) {
		t.Fatalf("missing id: got %v", err)
	}
}

func TestCatalog_DeleteRemovesImage(t *testing.T) {
	svc, files := newCatalog(t)
	ctx := context.Background()

	s, err := svc.Create(ctx, services.ServiceInput{CategoryName: "Moving", Image: image("van.gif", 10)})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if files.count() != 0 {
		t.Fatal("image should be deleted with the service")
	}
	if _, err := svc.Get(ctx, s.ID); !errors.Is(err, domain.ErrServiceNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
	if err := svc.Delete(ctx, s.ID); !errors.Is(err, domain.ErrServiceNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}
