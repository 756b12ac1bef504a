package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/media"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	catalogService = "catalog-service"

	useCaseCreate = "catalog.create_product"
	useCaseUpdate = "catalog.update_product"
	useCaseDelete = "catalog.delete_product"
	useCaseGet    = "catalog.get_product"
	useCaseList   = "catalog.list_products"
	useCaseExport = "catalog.export_products"

	imageFolder   = "products"
	imagePeer     = "image_store"
	imageEndpoint = "upload"

	DefaultPageSize = 12
	MaxPageSize     = 100

	// slugAttempts bounds both the suffix search and insert retries on a slug race.
	slugAttempts = 50
)

// Exporter renders products into a downloadable document.
type Exporter interface {
	WriteProducts(w io.Writer, products []*domain.Product) error
}

type Service struct {
	products domain.Repository
	images   media.ImageStore
	exporter Exporter
	ids      application.IDGenerator
	probe    *application.Probe
}

func NewService(
	products domain.Repository,
	images media.ImageStore,
	exporter Exporter,
	ids application.IDGenerator,
	tel observability.Observability,
) *Service {
	return &Service{
		products: products,
		images:   images,
		exporter: exporter,
		ids:      ids,
		probe:    application.NewProbe(tel, catalogService),
	}
}

type CreateProductInput struct {
	Name        string
	Description string
	Tags        []string
	PriceCents  int64
	Color       string
	Size        string
	TotalStock  int
}

// UpdateProductInput is a partial update; nil fields are left unchanged.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Tags        []string
	PriceCents  *int64
	Color       *string
	Size        *string
	TotalStock  *int
}

type ListQuery struct {
	Color         string
	Size          string
	Tag           string
	MinPriceCents *int64
	MaxPriceCents *int64
	Sort          string
	Page          int
	Limit         int
}

type ProductPage struct {
	Products      []*domain.Product
	TotalPages    int
	CurrentPage   int
	TotalProducts int64
}

func (s *Service) CreateProduct(ctx context.Context, who identity.Identity, in CreateProductInput, images []media.Upload) (_ *domain.Product, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseCreate, "CreateProduct")
	defer func() { run.End(err) }()

	if _, err = identity.RequireAdmin(who); err != nil {
		run.Fail(authStatus(err))
		return nil, err
	}

	size, err := domain.ParseSize(in.Size)
	if err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, application.Invalid("size must be one of sm, md, lg, xl")
	}
	draft := domain.Draft{
		Name:        in.Name,
		Description: in.Description,
		Tags:        in.Tags,
		PriceCents:  in.PriceCents,
		Color:       in.Color,
		Size:        size,
		TotalStock:  in.TotalStock,
	}
	product, err := domain.New(s.ids.NewID(), draft)
	if err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, validation(err)
	}
	base := domain.Slugify(product.Name)
	if base == "" {
		run.Fail("VALIDATION_FAILED")
		return nil, application.Invalid("name must contain at least one letter or digit")
	}

	urls, err := s.upload(ctx, images)
	if err != nil {
		run.Fail("IMAGE_UPLOAD_FAILED")
		return nil, err
	}
	product.AddImages(urls...)

	for attempt := 1; ; attempt++ {
		product.Slug, err = s.uniqueSlug(ctx, base, product.ID)
		if err != nil {
			run.Fail("SLUG_LOOKUP_FAILED")
			return nil, err
		}
		err = s.products.Insert(ctx, product)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrSlugTaken) || attempt >= slugAttempts {
			run.Fail("REPO_INSERT_FAILED")
			return nil, application.Repository(err)
		}
	}

	run.Span().SetAttributes(
		attribute.String("catalog.product_id", product.ID),
		attribute.String("catalog.slug", product.Slug),
	)
	run.With(observability.F("product_id", product.ID), observability.F("slug", product.Slug))
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, who identity.Identity, id string, in UpdateProductInput, images []media.Upload) (_ *domain.Product, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseUpdate, "UpdateProduct",
		attribute.String("catalog.product_id", id),
	)
	defer func() { run.End(err) }()

	if _, err = identity.RequireAdmin(who); err != nil {
		run.Fail(authStatus(err))
		return nil, err
	}

	product, err := s.products.Get(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		run.Fail("PRODUCT_NOT_FOUND")
		return nil, application.NotFound(err)
	case err != nil:
		run.Fail("REPO_LOAD_FAILED")
		return nil, application.Repository(err)
	}

	renamed, err := applyPatch(product, in)
	if err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, err
	}

	urls, err := s.upload(ctx, images)
	if err != nil {
		run.Fail("IMAGE_UPLOAD_FAILED")
		return nil, err
	}
	if len(urls) > 0 {
		product.AddImages(urls...)
	}

	base := domain.Slugify(product.Name)
	for attempt := 1; ; attempt++ {
		if renamed {
			if product.Slug, err = s.uniqueSlug(ctx, base, product.ID); err != nil {
				run.Fail("SLUG_LOOKUP_FAILED")
				return nil, err
			}
		}
		err = s.products.Update(ctx, product)
		if err == nil {
			break
		}
		switch {
		case errors.Is(err, domain.ErrNotFound):
			run.Fail("PRODUCT_NOT_FOUND")
			return nil, application.NotFound(err)
		case errors.Is(err, domain.ErrSlugTaken) && renamed && attempt < slugAttempts:
			continue
		default:
			run.Fail("REPO_UPDATE_FAILED")
			return nil, application.Repository(err)
		}
	}

	run.With(observability.F("product_id", product.ID), observability.F("renamed", renamed))
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, who identity.Identity, id string) (err error) {
	ctx, run := s.probe.Begin(ctx, useCaseDelete, "DeleteProduct",
		attribute.String("catalog.product_id", id),
	)
	defer func() { run.End(err) }()

	if _, err = identity.RequireAdmin(who); err != nil {
		run.Fail(authStatus(err))
		return err
	}

	if err = s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("PRODUCT_NOT_FOUND")
			return application.NotFound(err)
		}
		run.Fail("REPO_DELETE_FAILED")
		return application.Repository(err)
	}
	return nil
}

func (s *Service) GetProductBySlug(ctx context.Context, slug string) (_ *domain.Product, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseGet, "GetProductBySlug",
		attribute.String("catalog.slug", slug),
	)
	defer func() { run.End(err) }()

	product, err := s.products.GetBySlug(ctx, slug)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		run.Fail("PRODUCT_NOT_FOUND")
		return nil, application.NotFound(err)
	case err != nil:
		run.Fail("REPO_LOAD_FAILED")
		return nil, application.Repository(err)
	}
	return product, nil
}

func (s *Service) ListProducts(ctx context.Context, q ListQuery) (_ *ProductPage, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseList, "ListProducts")
	defer func() { run.End(err) }()

	filter, page, limit, err := buildFilter(q)
	if err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, err
	}

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return nil, application.Repository(err)
	}

	run.With(observability.F("total", total), observability.F("page", page))
	return &ProductPage{
		Products:      products,
		TotalPages:    int((total + int64(limit) - 1) / int64(limit)),
		CurrentPage:   page,
		TotalProducts: total,
	}, nil
}

// ExportProducts streams every product as a spreadsheet and returns how many were written.
func (s *Service) ExportProducts(ctx context.Context, who identity.Identity, w io.Writer) (_ int, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseExport, "ExportProducts")
	defer func() { run.End(err) }()

	if _, err = identity.RequireAdmin(who); err != nil {
		run.Fail(authStatus(err))
		return 0, err
	}

	products, _, err := s.products.List(ctx, domain.Filter{Sort: domain.SortNewest})
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return 0, application.Repository(err)
	}
	if err = s.exporter.WriteProducts(w, products); err != nil {
		run.Fail("EXPORT_FAILED")
		return 0, fmt.Errorf("catalog: export: %w", err)
	}

	run.With(observability.F("products", len(products)))
	return len(products), nil
}

func (s *Service) uniqueSlug(ctx context.Context, base, productID string) (string, error) {
	for attempt := 1; attempt <= slugAttempts; attempt++ {
		candidate := domain.SlugCandidate(base, attempt)
		taken, err := s.products.SlugExists(ctx, candidate, productID)
		if err != nil {
			return "", application.Repository(err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", application.Invalidf("no free slug for %q", base)
}

func (s *Service) upload(ctx context.Context, images []media.Upload) ([]string, error) {
	urls := make([]string, 0, len(images))
	for _, img := range images {
		start := time.Now()
		url, err := s.images.Upload(ctx, imageFolder, img)
		s.probe.External(imagePeer, imageEndpoint, start, err)
		if err != nil {
			return nil, application.Upstream(fmt.Errorf("upload %s: %w", img.Filename, err))
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func applyPatch(p *domain.Product, in UpdateProductInput) (renamed bool, err error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		name := strings.TrimSpace(*in.Name)
		if domain.Slugify(name) == "" {
			return false, application.Invalid("name must contain at least one letter or digit")
		}
		renamed = name != p.Name
		p.Name = name
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) != "" {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Tags != nil {
		p.Tags = domain.NormalizeTags(in.Tags)
	}
	if in.PriceCents != nil {
		p.PriceCents = *in.PriceCents
	}
	if in.Color != nil && strings.TrimSpace(*in.Color) != "" {
		p.Color = strings.TrimSpace(*in.Color)
	}
	if in.Size != nil && *in.Size != "" {
		size, err := domain.ParseSize(*in.Size)
		if err != nil {
			return false, application.Invalid("size must be one of sm, md, lg, xl")
		}
		p.Size = size
	}
	if err := p.Validate(); err != nil {
		return false, validation(err)
	}
	if in.TotalStock != nil {
		if err := p.SetStock(*in.TotalStock); err != nil {
			return false, validation(err)
		}
	}
	return renamed, nil
}

func buildFilter(q ListQuery) (domain.Filter, int, int, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}

	f := domain.Filter{
		Color:         strings.TrimSpace(q.Color),
		Tag:           strings.TrimSpace(q.Tag),
		MinPriceCents: q.MinPriceCents,
		MaxPriceCents: q.MaxPriceCents,
		Sort:          domain.ParseSortOrder(q.Sort),
		Offset:        (page - 1) * limit,
		Limit:         limit,
	}
	if q.Size != "" {
		size, err := domain.ParseSize(q.Size)
		if err != nil {
			return domain.Filter{}, 0, 0, application.Invalid("size must be one of sm, md, lg, xl")
		}
		f.Size = size
	}
	return f, page, limit, nil
}

// validation turns a domain rule violation into a client-facing message.
func validation(err error) error {
	return &application.ValidationError{Msg: strings.TrimPrefix(err.Error(), "catalog: "), Err: err}
}

func authStatus(err error) string {
	if errors.Is(err, identity.ErrForbidden) {
		return "FORBIDDEN"
	}
	return "UNAUTHENTICATED"
}
