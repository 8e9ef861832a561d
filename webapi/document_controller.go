package webapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"estateflow/agreement"
	"estateflow/document"
)

// DocumentController handles file attachments on agreements. Uploads are
// multipart form posts; the file part is named "file".
type DocumentController struct {
	svc  *document.Service
	crud *agreement.CRUDService
}

func NewDocumentController(svc *document.Service, crud *agreement.CRUDService) *DocumentController {
	return &DocumentController{svc: svc, crud: crud}
}

// authorizeAgreementWrite confirms the caller owns the agreement (admins
// included).
func (ct *DocumentController) authorizeAgreementWrite(c echo.Context, agreementID string) error {
	view, err := ct.crud.Get(c.Request().Context(), agreementID)
	if err != nil {
		return err
	}
	p := principal(c)
	if !p.IsAdmin() && view.Agreement.OwnerID != p.UserID {
		return agreement.Errorf(agreement.KindUnauthorized, "only the agreement owner may manage documents")
	}
	return nil
}

func (ct *DocumentController) Upload(c echo.Context) error {
	agreementID := c.Param("id")
	if err := ct.authorizeAgreementWrite(c, agreementID); err != nil {
		return respondError(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "file part required"})
	}
	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "unreadable file part"})
	}
	defer src.Close()

	body, err := io.ReadAll(src)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "unreadable file part"})
	}

	doc, err := ct.svc.Upload(c.Request().Context(), principal(c).UserID, document.UploadParams{
		AgreementID: agreementID,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Body:        body,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toDocumentResponse(doc))
}

func (ct *DocumentController) List(c echo.Context) error {
	agreementID := c.Param("id")
	if err := ct.authorizeAgreementWrite(c, agreementID); err != nil {
		return respondError(c, err)
	}

	docs, err := ct.svc.ListByAgreement(c.Request().Context(), agreementID)
	if err != nil {
		return respondError(c, err)
	}
	items := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		items = append(items, toDocumentResponse(d))
	}
	return c.JSON(http.StatusOK, map[string]any{"documents": items})
}

func (ct *DocumentController) Delete(c echo.Context) error {
	doc, err := ct.svc.Get(c.Request().Context(), c.Param("docId"))
	if err != nil {
		return respondError(c, err)
	}
	if err := ct.authorizeAgreementWrite(c, doc.AgreementID); err != nil {
		return respondError(c, err)
	}

	if err := ct.svc.Remove(c.Request().Context(), doc.ID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func toDocumentResponse(d document.Document) map[string]any {
	return map[string]any{
		"id":          d.ID,
		"agreementId": d.AgreementID,
		"fileName":    d.FileName,
		"contentType": d.ContentType,
		"sizeBytes":   d.SizeBytes,
		"createdAt":   d.CreatedAt,
	}
}
