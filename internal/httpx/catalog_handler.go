package httpx

import (
	"net/http"
	"strings"

	"github.com/ariefcatur/go-donation-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-donation-fulfillment/internal/matching"
	"github.com/ariefcatur/go-donation-fulfillment/internal/pricing"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	Catalog   *catalog.Catalog
	Suppliers *catalog.SupplierRegistry
	Log       *zap.Logger
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/catalog", h.listPrices)
	r.Get("/suppliers", h.listSuppliers)
	r.Get("/suppliers/eligible", h.eligibleSuppliers)
	r.Post("/quotes", h.quote)
}

func (h *CatalogHandler) listPrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Catalog.Prices())
}

func (h *CatalogHandler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Suppliers.All())
}

// eligibleSuppliers takes ?types=groceries,clothing.
func (h *CatalogHandler) eligibleSuppliers(w http.ResponseWriter, r *http.Request) {
	var types []catalog.ItemType
	for _, t := range strings.Split(r.URL.Query().Get("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, catalog.ItemType(t))
		}
	}
	ss, err := matching.FindByTypes(types, h.Suppliers)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ss)
}

func (h *CatalogHandler) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteReq
	if !decode(w, r, &req) {
		return
	}
	items := toItems(req.Items)
	if err := catalog.ValidateItems(items); err != nil {
		writeError(w, h.Log, err)
		return
	}
	q, err := pricing.Compute(items, h.Catalog)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}
