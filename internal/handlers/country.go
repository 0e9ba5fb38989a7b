package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/bikestore/internal/services"
)

type country struct {
	Name    string `json:"name"`
	Code    string `json:"code"`
	IsdCode string `json:"isd_code"`
	Flag    string `json:"flag"`
}

var countries = []country{
	{Name: "India", Code: "IN", IsdCode: "91", Flag: "🇮🇳"},
	{Name: "United States", Code: "US", IsdCode: "1", Flag: "🇺🇸"},
	{Name: "United Kingdom", Code: "GB", IsdCode: "44", Flag: "🇬🇧"},
	{Name: "United Arab Emirates", Code: "AE", IsdCode: "971", Flag: "🇦🇪"},
	{Name: "Singapore", Code: "SG", IsdCode: "65", Flag: "🇸🇬"},
	{Name: "Australia", Code: "AU", IsdCode: "61", Flag: "🇦🇺"},
	{Name: "Canada", Code: "CA", IsdCode: "1", Flag: "🇨🇦"},
	{Name: "Germany", Code: "DE", IsdCode: "49", Flag: "🇩🇪"},
	{Name: "France", Code: "FR", IsdCode: "33", Flag: "🇫🇷"},
	{Name: "Japan", Code: "JP", IsdCode: "81", Flag: "🇯🇵"},
	{Name: "Nepal", Code: "NP", IsdCode: "977", Flag: "🇳🇵"},
	{Name: "Sri Lanka", Code: "LK", IsdCode: "94", Flag: "🇱🇰"},
	{Name: "Bangladesh", Code: "BD", IsdCode: "880", Flag: "🇧🇩"},
}

// ListISDCodes returns the dialing codes shown on the login screen.
func ListISDCodes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": countries})
}

// ListCurrencies returns the supported display currencies.
func ListCurrencies(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": services.SupportedCurrencies})
}
