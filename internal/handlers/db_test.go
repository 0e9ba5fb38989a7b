package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/bikestore/internal/database"
	"github.com/example/bikestore/internal/middleware"
	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/utils"
)

// The tests in this file need PostgreSQL and are skipped unless
// BIKESTORE_TEST_DATABASE_URL is set.

func integrationDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("BIKESTORE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("BIKESTORE_TEST_DATABASE_URL not set")
	}
	return database.Connect(database.Options{DSN: dsn, MaxOpenConns: 5})
}

func testPhoneNumber() string {
	return fmt.Sprintf("8%09d", rand.Intn(1_000_000_000))
}

func createProduct(t *testing.T, db *gorm.DB, p models.Product) models.Product {
	t.Helper()
	require.NoError(t, db.Create(&p).Error)
	t.Cleanup(func() { db.Delete(&models.Product{}, "id = ?", p.ID) })
	return p
}

func sendJSON(t *testing.T, app *fiber.App, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode, decodeBody(t, resp.Body)
}

func TestWishlistHandler_Lifecycle(t *testing.T) {
	db := integrationDB(t)
	phone := testPhoneNumber()
	t.Cleanup(func() { db.Delete(&models.Wishlist{}, "phone_number = ?", phone) })

	horn := createProduct(t, db, models.Product{Name: "Horn", Price: 400, QuantityAvailable: 3})
	grips := createProduct(t, db, models.Product{Name: "Grips", Price: 250, QuantityAvailable: 3})

	h := NewWishlistHandler(db)
	app := newTestApp()
	app.Post("/wishlist/add", h.AddToWishlist)
	app.Post("/wishlist/remove", h.RemoveFromWishlist)
	app.Get("/wishlist/:phoneNumber", h.GetWishlist)

	item := func(p models.Product) fiber.Map {
		return fiber.Map{"phone_number": phone, "product_id": p.ID.String()}
	}

	status, body := sendJSON(t, app, fiber.MethodPost, "/wishlist/add", "", item(horn))
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "Product added to wishlist successfully", body["message"])

	status, body = sendJSON(t, app, fiber.MethodPost, "/wishlist/add", "", item(horn))
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "Product already in wishlist", body["message"])
	assert.Len(t, body["data"].(map[string]any)["product_ids"], 1)

	status, body = sendJSON(t, app, fiber.MethodPost, "/wishlist/add", "", item(grips))
	require.Equal(t, fiber.StatusOK, status, body)
	data := body["data"].(map[string]any)
	assert.Equal(t, []any{horn.ID.String(), grips.ID.String()}, data["product_ids"])
	assert.Len(t, data["products"], 2)

	status, body = sendJSON(t, app, fiber.MethodPost, "/wishlist/add", "", fiber.Map{"phone_number": phone, "product_id": uuid.NewString()})
	assert.Equal(t, fiber.StatusNotFound, status, body)

	status, body = sendJSON(t, app, fiber.MethodPost, "/wishlist/remove", "", item(horn))
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, []any{grips.ID.String()}, body["data"].(map[string]any)["product_ids"])

	status, body = sendJSON(t, app, fiber.MethodPost, "/wishlist/remove", "", item(grips))
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Nil(t, body["data"].(map[string]any)["id"])

	var count int64
	require.NoError(t, db.Model(&models.Wishlist{}).Where("phone_number = ?", phone).Count(&count).Error)
	assert.Zero(t, count)

	status, body = sendJSON(t, app, fiber.MethodGet, "/wishlist/"+phone, "", nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Nil(t, body["data"].(map[string]any)["id"])
	assert.Empty(t, body["data"].(map[string]any)["product_ids"])

	status, body = sendJSON(t, app, fiber.MethodPost, "/wishlist/remove", "", item(grips))
	assert.Equal(t, fiber.StatusNotFound, status, body)
}

func TestProductHandler_SearchAndCategoryCounts(t *testing.T) {
	db := integrationDB(t)
	tag := uuid.NewString()[:8]

	brand := models.Brand{Name: "Brand " + tag}
	require.NoError(t, db.Create(&brand).Error)
	t.Cleanup(func() { db.Delete(&models.Brand{}, "id = ?", brand.ID) })
	bike := models.BikeModel{BrandID: brand.ID, Name: tag + " Classic"}
	require.NoError(t, db.Create(&bike).Error)
	t.Cleanup(func() { db.Delete(&models.BikeModel{}, "id = ?", bike.ID) })

	mirrors := "mirrors-" + tag
	guards := "guards-" + tag
	byName := createProduct(t, db, models.Product{Name: "Mirror " + tag, Category: mirrors, CategoryIcon: "mirror.svg", Price: 300, QuantityAvailable: 2})
	byModel := createProduct(t, db, models.Product{Name: "Crash Guard", BikeModelID: &bike.ID, Category: guards, Price: 2500, QuantityAvailable: 1})
	createProduct(t, db, models.Product{Name: "Mirror " + tag + " Pro", Category: mirrors, Price: 500, QuantityAvailable: 0})

	h := NewProductHandler(db, nil)
	app := newTestApp()
	h.RegisterProductRoutes(app.Group("/product"))

	status, body := sendJSON(t, app, fiber.MethodGet, "/product/search?query="+tag, "", nil)
	require.Equal(t, fiber.StatusOK, status, body)
	var ids []string
	for _, p := range body["data"].([]any) {
		ids = append(ids, p.(map[string]any)["id"].(string))
	}
	assert.ElementsMatch(t, []string{byName.ID.String(), byModel.ID.String()}, ids)
	assert.Equal(t, float64(2), body["pagination"].(map[string]any)["total"])

	status, body = sendJSON(t, app, fiber.MethodGet, "/product/search?query=", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status, body)

	status, body = sendJSON(t, app, fiber.MethodGet, "/product/categories/count", "", nil)
	require.Equal(t, fiber.StatusOK, status, body)
	positions := map[string]int{}
	for i, raw := range body["data"].([]any) {
		entry := raw.(map[string]any)
		switch entry["name"] {
		case mirrors:
			positions[mirrors] = i
			assert.Equal(t, float64(2), entry["count"])
			assert.Equal(t, "mirror.svg", entry["icon"])
		case guards:
			positions[guards] = i
			assert.Equal(t, float64(1), entry["count"])
		}
	}
	require.Len(t, positions, 2)
	assert.Less(t, positions[mirrors], positions[guards])
}

func TestProfileHandler_DuplicateProfileRejected(t *testing.T) {
	db := integrationDB(t)
	phone := testPhoneNumber()
	t.Cleanup(func() { db.Delete(&models.Profile{}, "phone_number = ?", phone) })

	const secret = "profile-test-secret"
	token, err := utils.GeneratePhoneToken(secret, "91", phone, time.Hour)
	require.NoError(t, err)

	h := NewProfileHandler(db)
	app := newTestApp()
	app.Post("/profile", middleware.AuthMiddleware(secret), h.CreateProfile)

	payload := fiber.Map{"first_name": "Meera", "isd_code": "91", "phone_number": phone}

	status, body := sendJSON(t, app, fiber.MethodPost, "/profile", token, payload)
	require.Equal(t, fiber.StatusCreated, status, body)

	status, body = sendJSON(t, app, fiber.MethodPost, "/profile", token, payload)
	assert.Equal(t, fiber.StatusBadRequest, status, body)
	assert.Equal(t, "Profile with this ISD code and phone number already exists", body["error"])

	status, _ = sendJSON(t, app, fiber.MethodPost, "/profile", "", payload)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}
