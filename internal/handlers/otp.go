package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/bikestore/internal/services"
	"github.com/example/bikestore/internal/utils"
)

// OTPHandler serves phone verification.
type OTPHandler struct {
	otps *services.OTPService
}

// NewOTPHandler constructs an OTPHandler.
func NewOTPHandler(otps *services.OTPService) *OTPHandler {
	return &OTPHandler{otps: otps}
}

type generateOTPRequest struct {
	IsdCode     string `json:"isd_code" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
}

type verifyOTPRequest struct {
	IsdCode     string `json:"isd_code" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	OTP         string `json:"otp" validate:"required"`
}

// Generate sends a fresh code to the phone number.
func (h *OTPHandler) Generate(c *fiber.Ctx) error {
	var req generateOTPRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	expiresAt, err := h.otps.Generate(c.UserContext(), req.IsdCode, req.PhoneNumber)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "OTP sent successfully",
		"data": fiber.Map{
			"isd_code":     req.IsdCode,
			"phone_number": req.PhoneNumber,
			"expires_at":   expiresAt,
		},
	})
}

// Verify checks the code and returns a session token plus any existing profile.
func (h *OTPHandler) Verify(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.otps.Verify(c.UserContext(), req.IsdCode, req.PhoneNumber, req.OTP)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "OTP verified successfully",
		"data":    result,
	})
}
