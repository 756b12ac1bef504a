package httppresentation

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	appCatalog "github.com/Zhima-Mochi/minishop-storefront/internal/application/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
)

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q, err := listQueryFrom(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	page, err := h.svc.Catalog.ListProducts(r.Context(), q)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductPageResponse(page))
}

func listQueryFrom(r *http.Request) (appCatalog.ListQuery, error) {
	params := r.URL.Query()
	q := appCatalog.ListQuery{
		Color: params.Get("color"),
		Size:  params.Get("size"),
		Tag:   params.Get("tag"),
		Sort:  params.Get("sort"),
	}
	var err error
	if v := params.Get("page"); v != "" {
		if q.Page, err = atoiField("page", v); err != nil {
			return q, err
		}
	}
	if v := params.Get("limit"); v != "" {
		if q.Limit, err = atoiField("limit", v); err != nil {
			return q, err
		}
	}
	if q.MinPriceCents, err = priceParam(params.Get("minPrice"), "minPrice"); err != nil {
		return q, err
	}
	if q.MaxPriceCents, err = priceParam(params.Get("maxPrice"), "maxPrice"); err != nil {
		return q, err
	}
	return q, nil
}

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportFilename  = "products.xlsx"
)

var centsPerUnit = decimal.NewFromInt(100)

// priceParam reads a major-unit bound. Zero is a valid bound, unlike a product price.
func priceParam(v, name string) (*int64, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return nil, application.Invalidf("%s must be a non-negative amount", name)
	}
	cents := d.Mul(centsPerUnit).Round(0).IntPart()
	return &cents, nil
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Catalog.GetProductBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	form, cleanup, err := h.parseForm(w, r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	defer cleanup()

	in := appCatalog.CreateProductInput{
		Name:        form.value("name"),
		Description: form.value("description"),
		Tags:        catalog.SplitTags(form.value("tags")),
		Color:       form.value("color"),
		Size:        form.value("size"),
	}
	if in.PriceCents, err = catalog.ParsePrice(form.value("price")); err != nil {
		h.writeDomainError(w, r, application.Invalid("price must be a positive amount"))
		return
	}
	if v := form.value("totalStock"); v != "" {
		if in.TotalStock, err = atoiField("totalStock", v); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
	}

	images, err := uploadsFrom(form, "images")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	defer closeUploads(images)

	p, err := h.svc.Catalog.CreateProduct(r.Context(), callerFrom(r.Context()), in, images.all())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	form, cleanup, err := h.parseForm(w, r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	defer cleanup()

	in := appCatalog.UpdateProductInput{
		Name:        form.optional("name"),
		Description: form.optional("description"),
		Color:       form.optional("color"),
		Size:        form.optional("size"),
	}
	if form.has("tags") {
		in.Tags = catalog.SplitTags(form.value("tags"))
	}
	if v := form.optional("price"); v != nil {
		cents, err := catalog.ParsePrice(*v)
		if err != nil {
			h.writeDomainError(w, r, application.Invalid("price must be a positive amount"))
			return
		}
		in.PriceCents = &cents
	}
	if v := form.optional("totalStock"); v != nil {
		n, err := atoiField("totalStock", *v)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		in.TotalStock = &n
	}

	images, err := uploadsFrom(form, "images")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	defer closeUploads(images)

	p, err := h.svc.Catalog.UpdateProduct(r.Context(), callerFrom(r.Context()), r.PathValue("id"), in, images.all())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Catalog.DeleteProduct(r.Context(), callerFrom(r.Context()), r.PathValue("id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "product deleted successfully"})
}

// handleExportProducts buffers the workbook so a failure can still produce a JSON error.
func (h *Handler) handleExportProducts(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := h.svc.Catalog.ExportProducts(r.Context(), callerFrom(r.Context()), &buf)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+exportFilename)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Product-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
