package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/marchelocal/server/internal/middleware"
	"github.com/marchelocal/server/internal/services"
)

type VendorHandler struct {
	vendors *services.VendorService
	catalog *services.CatalogService
	bank    *services.BankService
}

func NewVendorHandler(vendors *services.VendorService, catalog *services.CatalogService, bank *services.BankService) *VendorHandler {
	return &VendorHandler{vendors: vendors, catalog: catalog, bank: bank}
}

// SetupVendorRoutes mounts /vendors/me. The router must already require auth;
// vendorOnly guards everything but the profile itself. A freshly promoted
// vendor has to refresh its token to pass it.
func SetupVendorRoutes(router fiber.Router, h *VendorHandler, vendorOnly fiber.Handler) {
	router.Get("/me", h.GetMe)
	router.Put("/me", h.UpdateMe)

	me := router.Group("/me", vendorOnly)

	me.Post("/markets/:marketId", h.AttendMarket)
	me.Delete("/markets/:marketId", h.LeaveMarket)

	me.Get("/products", h.ListProducts)
	me.Post("/products", h.CreateProduct)
	me.Get("/products/:id", h.GetProduct)
	me.Put("/products/:id", h.UpdateProduct)
	me.Delete("/products/:id", h.DeleteProduct)
	me.Put("/products/:id/markets/:marketId", h.SetOverride)
	me.Delete("/products/:id/markets/:marketId", h.DeleteOverride)

	me.Get("/bank-details", h.GetBankDetails)
	me.Put("/bank-details", h.PutBankDetails)
}

// vendorID resolves the vendor profile of the authenticated user
func (h *VendorHandler) vendorID(c *fiber.Ctx) (uint, error) {
	vendor, err := h.vendors.ByUser(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return 0, err
	}
	return vendor.ID, nil
}

// GetMe godoc
// @Summary Get own vendor profile
// @Tags vendors
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.VendorProfile
// @Failure 403 {object} ErrorResponse
// @Router /vendors/me [get]
func (h *VendorHandler) GetMe(c *fiber.Ctx) error {
	profile, err := h.vendors.Profile(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMe godoc
// @Summary Create or update own vendor profile
// @Description Creating a profile promotes a consumer account to the vendor role.
// @Tags vendors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.VendorRequest true "Profile"
// @Success 200 {object} models.Vendor
// @Router /vendors/me [put]
func (h *VendorHandler) UpdateMe(c *fiber.Ctx) error {
	var req services.VendorRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	vendor, err := h.vendors.Upsert(c.UserContext(), middleware.UserID(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(vendor)
}

// AttendMarket godoc
// @Summary Attend a market
// @Tags vendors
// @Security BearerAuth
// @Param marketId path int true "Market ID"
// @Success 204
// @Router /vendors/me/markets/{marketId} [post]
func (h *VendorHandler) AttendMarket(c *fiber.Ctx) error {
	marketID, err := paramID(c, "marketId")
	if err != nil {
		return err
	}
	if err := h.vendors.Attend(c.UserContext(), middleware.UserID(c), marketID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LeaveMarket godoc
// @Summary Stop attending a market
// @Description Also removes the vendor's price overrides at that market.
// @Tags vendors
// @Security BearerAuth
// @Param marketId path int true "Market ID"
// @Success 204
// @Router /vendors/me/markets/{marketId} [delete]
func (h *VendorHandler) LeaveMarket(c *fiber.Ctx) error {
	marketID, err := paramID(c, "marketId")
	if err != nil {
		return err
	}
	if err := h.vendors.Leave(c.UserContext(), middleware.UserID(c), marketID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListProducts godoc
// @Summary List own products
// @Tags products
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Product
// @Router /vendors/me/products [get]
func (h *VendorHandler) ListProducts(c *fiber.Ctx) error {
	vendorID, err := h.vendorID(c)
	if err != nil {
		return respondError(c, err)
	}

	products, err := h.catalog.ListProducts(c.UserContext(), vendorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(products)
}

// CreateProduct godoc
// @Summary Create a product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.ProductRequest true "Product"
// @Success 201 {object} models.Product
// @Router /vendors/me/products [post]
func (h *VendorHandler) CreateProduct(c *fiber.Ctx) error {
	vendorID, err := h.vendorID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req services.ProductRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	product, err := h.catalog.CreateProduct(c.UserContext(), vendorID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// GetProduct godoc
// @Summary Get an own product
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} models.Product
// @Router /vendors/me/products/{id} [get]
func (h *VendorHandler) GetProduct(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	vendorID, err := h.vendorID(c)
	if err != nil {
		return respondError(c, err)
	}

	product, err := h.catalog.GetProduct(c.UserContext(), vendorID, productID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// UpdateProduct godoc
// @Summary Update an own product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Param request body services.ProductRequest true "Product"
// @Success 200 {object} models.Product
// @Router /vendors/me/products/{id} [put]
func (h *VendorHandler) UpdateProduct(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	vendorID, err := h.vendorID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req services.ProductRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	product, err := h.catalog.UpdateProduct(c.UserContext(), vendorID, productID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// DeleteProduct godoc
// @Summary Delete an own product
// @Tags products
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 204
// @Router /vendors/me/products/{id} [delete]
func (h *VendorHandler) DeleteProduct(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	vendorID, err := h.vendorID(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.catalog.DeleteProduct(c.UserContext(), vendorID, productID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetOverride godoc
// @Summary Set the price or stock of a product at one market
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Param marketId path int true "Market ID"
// @Param request body services.OverrideRequest true "Override"
// @Success 200 {object} models.MarketProduct
// @Failure 403 {object} ErrorResponse
// @Router /vendors/me/products/{id}/markets/{marketId} [put]
func (h *VendorHandler) SetOverride(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	marketID, err := paramID(c, "marketId")
	if err != nil {
		return err
	}
	vendorID, err := h.vendorID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req services.OverrideRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	override, err := h.catalog.SetOverride(c.UserContext(), vendorID, productID, marketID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(override)
}

// DeleteOverride godoc
// @Summary Remove a per-market override
// @Tags products
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Param marketId path int true "Market ID"
// @Success 204
// @Router /vendors/me/products/{id}/markets/{marketId} [delete]
func (h *VendorHandler) DeleteOverride(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	marketID, err := paramID(c, "marketId")
	if err != nil {
		return err
	}
	vendorID, err := h.vendorID(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.catalog.DeleteOverride(c.UserContext(), vendorID, productID, marketID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetBankDetails godoc
// @Summary Get own bank details, masked
// @Tags vendors
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.MaskedBankDetails
// @Router /vendors/me/bank-details [get]
func (h *VendorHandler) GetBankDetails(c *fiber.Ctx) error {
	vendorID, err := h.vendorID(c)
	if err != nil {
		return respondError(c, err)
	}

	details, err := h.bank.Get(c.UserContext(), vendorID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(details)
}

// PutBankDetails godoc
// @Summary Store own bank details
// @Description IBAN and BIC are encrypted at rest and only ever returned masked.
// @Tags vendors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.BankDetailsRequest true "Bank details"
// @Success 200 {object} services.MaskedBankDetails
// @Failure 400 {object} ErrorResponse
// @Router /vendors/me/bank-details [put]
func (h *VendorHandler) PutBankDetails(c *fiber.Ctx) error {
	vendorID, err := h.vendorID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req services.BankDetailsRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	details, err := h.bank.Put(c.UserContext(), vendorID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(details)
}
