package cmd

import (
	"github.com/labstack/echo/v4"

	"estateflow/agreement"
	"estateflow/asset"
	"estateflow/auth"
	"estateflow/document"
	"estateflow/family"
	"estateflow/webapi"
)

type RouteOpts struct {
	Auth      *auth.Service
	Signing   *agreement.SigningService
	CRUD      *agreement.CRUDService
	Family    *family.Service
	Assets    *asset.Service
	Documents *document.Service
}

func setupRoutes(e *echo.Echo, opts RouteOpts) {
	authController := webapi.NewAuthController(opts.Auth)
	e.POST("/api/auth/register", authController.Register)
	e.POST("/api/auth/login", authController.Login)

	g := e.Group("/api", webapi.AuthMiddleware(opts.Auth))

	g.GET("/auth/me", authController.Me)

	agreementController := webapi.NewAgreementController(opts.CRUD)
	g.POST("/agreement", agreementController.Create)
	g.GET("/agreement", agreementController.List)
	g.GET("/agreement/:id", agreementController.Get)

	signingController := webapi.NewSigningController(opts.Signing)
	g.POST("/agreement/:id/sign/owner", signingController.OwnerSign)
	g.POST("/agreement/:id/sign/beneficiary", signingController.BeneficiarySign)
	g.POST("/agreement/:id/sign/witness", signingController.WitnessSign, webapi.RequireAdmin)

	familyController := webapi.NewFamilyController(opts.Family)
	g.POST("/family/members", familyController.AddMember)
	g.POST("/family/non-registered", familyController.AddNonRegistered)
	g.GET("/family", familyController.List)

	assetController := webapi.NewAssetController(opts.Assets)
	g.POST("/assets", assetController.Register)
	g.GET("/assets", assetController.List)
	g.GET("/assets/:id", assetController.Get)

	documentController := webapi.NewDocumentController(opts.Documents, opts.CRUD)
	g.POST("/agreement/:id/documents", documentController.Upload)
	g.GET("/agreement/:id/documents", documentController.List)
	g.DELETE("/documents/:docId", documentController.Delete)
}
