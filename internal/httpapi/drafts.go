package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
)

// draftRoutes serve the four editing screens. Every response carries the
// draft as it now stands, rejections included.
func (a *API) draftRoutes(r chi.Router) {
	r.Route("/drafts", func(r chi.Router) {
		r.Get("/", a.handleListDrafts)

		r.Route("/sales", func(r chi.Router) {
			r.Post("/", a.handleOpenSaleDraft)
			r.Get("/customers", a.handleSaleCustomers)
			r.Get("/{id}", a.handleGetSaleDraft)
			r.Get("/{id}/catalog", a.handleSaleDraftCatalog)
			r.Post("/{id}/items", a.handleAddSaleItem)
			r.Delete("/{id}/items", a.handleClearSaleItems)
			r.Patch("/{id}/items/{index}", a.handleUpdateSaleItem)
			r.Delete("/{id}/items/{index}", a.handleRemoveSaleItem)
			r.Patch("/{id}/details", a.handleSaleDetails)
			r.Post("/{id}/discount-percent", a.handleSaleDiscountPercent)
			r.Post("/{id}/submit", a.handleSubmitSaleDraft)
			r.Delete("/{id}", a.discardDraft(domain.DraftSale))
		})

		r.Route("/returns", func(r chi.Router) {
			r.Post("/", a.handleOpenReturnDraft)
			r.Get("/{id}", a.handleGetReturnDraft)
			r.Put("/{id}/quantity", a.handleReturnQuantity)
			r.Post("/{id}/return-all", a.handleReturnAll)
			r.Post("/{id}/clear", a.handleClearReturn)
			r.Patch("/{id}/reason", a.handleReturnReason)
			r.Post("/{id}/submit", a.handleSubmitReturnDraft)
			r.Delete("/{id}", a.discardDraft(domain.DraftReturn))
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Post("/", a.handleOpenPurchaseDraft)
			r.Get("/{id}", a.handleGetPurchaseDraft)
			r.Post("/{id}/items", a.handleAddPurchaseItem)
			r.Delete("/{id}/items", a.handleClearPurchaseItems)
			r.Patch("/{id}/items/{index}", a.handleUpdatePurchaseItem)
			r.Delete("/{id}/items/{index}", a.handleRemovePurchaseItem)
			r.Patch("/{id}/details", a.handlePurchaseDetails)
			r.Post("/{id}/submit", a.handleSubmitPurchaseDraft)
			r.Delete("/{id}", a.discardDraft(domain.DraftPurchase))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", a.handleOpenCategoryDraft)
			r.Get("/{id}", a.handleGetCategoryDraft)
			r.Post("/{id}/attributes", a.handleAddCategoryAttribute)
			r.Patch("/{id}/attributes/{index}", a.handleUpdateCategoryAttribute)
			r.Delete("/{id}/attributes/{index}", a.handleRemoveCategoryAttribute)
			r.Post("/{id}/attributes/{index}/options", a.handleAddAttributeOption)
			r.Delete("/{id}/attributes/{index}/options/{option}", a.handleRemoveAttributeOption)
			r.Put("/{id}/parent", a.handleCategoryParent)
			r.Patch("/{id}/details", a.handleCategoryDetails)
			r.Post("/{id}/submit", a.handleSubmitCategoryDraft)
			r.Delete("/{id}", a.discardDraft(domain.DraftCategory))
		})
	})
}

// respondDraft writes view, or err with view attached so the screen can
// redraw from what was kept.
func (a *API) respondDraft(w http.ResponseWriter, r *http.Request, status int, view any, err error) {
	if err != nil {
		a.fail(w, r, err, "draft", view)
		return
	}
	writeJSON(w, status, map[string]any{"draft": view})
}

func (a *API) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := a.service.ListDrafts(r.Context(), r.URL.Query().Get("kind"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drafts": drafts})
}

func (a *API) discardDraft(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.service.DiscardDraft(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
			a.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Sales

func (a *API) handleOpenSaleDraft(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.OpenSaleDraft(r.Context())
	a.respondDraft(w, r, http.StatusCreated, view, err)
}

func (a *API) handleSaleCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := a.service.SaleCustomers(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (a *API) handleGetSaleDraft(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.GetSaleDraft(r.Context(), chi.URLParam(r, "id"))
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleSaleDraftCatalog(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.SaleDraftCatalog(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleAddSaleItem(w http.ResponseWriter, r *http.Request) {
	var in domain.SaleItemInput
	if err := a.decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.AddSaleItem(r.Context(), chi.URLParam(r, "id"), in)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleUpdateSaleItem(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var in domain.SaleItemPatch
	if err := a.decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.UpdateSaleItem(r.Context(), chi.URLParam(r, "id"), index, in)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleRemoveSaleItem(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.RemoveSaleItem(r.Context(), chi.URLParam(r, "id"), index)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleClearSaleItems(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.ClearSaleItems(r.Context(), chi.URLParam(r, "id"))
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleSaleDetails(w http.ResponseWriter, r *http.Request) {
	var in domain.SaleDetailsInput
	if err := a.decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.UpdateSaleDetails(r.Context(), chi.URLParam(r, "id"), in)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleSaleDiscountPercent(w http.ResponseWriter, r *http.Request) {
	var in domain.DiscountPercentInput
	if err := a.decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.ApplySaleDiscountPercent(r.Context(), chi.URLParam(r, "id"), in)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleSubmitSaleDraft(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.SubmitSaleDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, "draft", result.Draft)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Returns

func (a *API) handleOpenReturnDraft(w http.ResponseWriter, r *http.Request) {
	var in domain.OpenReturnDraftInput
	if err := a.decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.OpenReturnDraft(r.Context(), in.SaleID)
	a.respondDraft(w, r, http.StatusCreated, view, err)
}

func (a *API) handleGetReturnDraft(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.GetReturnDraft(r.Context(), chi.URLParam(r, "id"))
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleReturnQuantity(w http.ResponseWriter, r *http.Request) {
	var in domain.ReturnQuantityInput
	if err := a.decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.SetReturnQuantity(r.Context(), chi.URLParam(r, "id"), in)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleReturnAll(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.ReturnAllItems(r.Context(), chi.URLParam(r, "id"))
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleClearReturn(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.ClearReturnItems(r.Context(), chi.URLParam(r, "id"))
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleReturnReason(w http.ResponseWriter, r *http.Request) {
	var in domain.ReturnReasonInput
	if err := a.decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.SetReturnReason(r.Context(), chi.URLParam(r, "id"), in)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleSubmitReturnDraft(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.SubmitReturnDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, "draft", result.Draft)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Purchases

func (a *API) handleOpenPurchaseDraft(w http.ResponseWriter, r *http.Request) {
	var in domain.OpenPurchaseDraftInput
	if _, err := a.decodeOptionalJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	if in.PurchaseID != "" {
		view, err := a.service.OpenPurchaseEditDraft(r.Context(), in.PurchaseID)
		a.respondDraft(w, r, http.StatusCreated, view, err)
		return
	}
	view, err := a.service.OpenPurchaseDraft(r.Context())
	a.respondDraft(w, r, http.StatusCreated, view, err)
}

func (a *API) handleGetPurchaseDraft(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.GetPurchaseDraft(r.Context(), chi.URLParam(r, "id"))
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleAddPurchaseItem(w http.ResponseWriter, r *http.Request) {
	var in domain.PurchaseItemInput
	if err := a.decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.AddPurchaseItem(r.Context(), chi.URLParam(r, "id"), in)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleUpdatePurchaseItem(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var in domain.PurchaseItemPatch
	if err := a.decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.UpdatePurchaseItem(r.Context(), chi.URLParam(r, "id"), index, in)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleRemovePurchaseItem(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.RemovePurchaseItem(r.Context(), chi.URLParam(r, "id"), index)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleClearPurchaseItems(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.ClearPurchaseItems(r.Context(), chi.URLParam(r, "id"))
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handlePurchaseDetails(w http.ResponseWriter, r *http.Request) {
	var in domain.PurchaseDetailsInput
	if err := a.decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.UpdatePurchaseDetails(r.Context(), chi.URLParam(r, "id"), in)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleSubmitPurchaseDraft(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.SubmitPurchaseDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, "draft", result.Draft)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Categories

func (a *API) handleOpenCategoryDraft(w http.ResponseWriter, r *http.Request) {
	var in domain.OpenCategoryDraftInput
	if _, err := a.decodeOptionalJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	if in.CategoryID != "" {
		view, err := a.service.OpenCategoryEditDraft(r.Context(), in.CategoryID)
		a.respondDraft(w, r, http.StatusCreated, view, err)
		return
	}
	view, err := a.service.OpenCategoryDraft(r.Context())
	a.respondDraft(w, r, http.StatusCreated, view, err)
}

func (a *API) handleGetCategoryDraft(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.GetCategoryDraft(r.Context(), chi.URLParam(r, "id"))
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleAddCategoryAttribute(w http.ResponseWriter, r *http.Request) {
	in := &domain.AttributeInput{}
	present, err := a.decodeOptionalJSON(r, in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !present {
		in = nil
	}
	view, err := a.service.AddCategoryAttribute(r.Context(), chi.URLParam(r, "id"), in)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleUpdateCategoryAttribute(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var in domain.AttributePatchInput
	if err := a.decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.UpdateCategoryAttribute(r.Context(), chi.URLParam(r, "id"), index, in)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleRemoveCategoryAttribute(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.RemoveCategoryAttribute(r.Context(), chi.URLParam(r, "id"), index)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleAddAttributeOption(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var in domain.AttributeOptionInput
	if _, err := a.decodeOptionalJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.AddAttributeOption(r.Context(), chi.URLParam(r, "id"), index, in)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleRemoveAttributeOption(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	option, err := pathIndex(r, "option")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.RemoveAttributeOption(r.Context(), chi.URLParam(r, "id"), index, option)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleCategoryParent(w http.ResponseWriter, r *http.Request) {
	var in domain.CategoryParentInput
	if err := a.decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.SetCategoryParent(r.Context(), chi.URLParam(r, "id"), in)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleCategoryDetails(w http.ResponseWriter, r *http.Request) {
	var in domain.CategoryDetailsInput
	if err := a.decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	view, err := a.service.UpdateCategoryDetails(r.Context(), chi.URLParam(r, "id"), in)
	a.respondDraft(w, r, http.StatusOK, view, err)
}

func (a *API) handleSubmitCategoryDraft(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.SubmitCategoryDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, "draft", result.Draft)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
