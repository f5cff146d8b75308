package echoapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/risiti/core"
	"github.com/trezcool/risiti/core/receipt"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type receiptApi struct {
	conf   *core.Config
	svc    *receipt.Service
	logger core.Logger
}

func registerReceiptAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := receiptApi{
		conf:   deps.Conf,
		svc:    deps.ReceiptSvc,
		logger: deps.Logger,
	}

	rg := g.Group("/receipts", jwt)

	// admin endpoints
	rg.POST("/generate", api.generate, adminMiddleware())
	rg.GET("", api.query, adminMiddleware())
	rg.POST("/send", api.send, adminMiddleware())
	rg.DELETE("/:id", api.destroy, adminMiddleware())

	// student endpoints
	rg.GET("/mine", api.mine)
	rg.GET("/:id/download", api.download)
}

// Handlers

// generate expects a multipart form with a "template" .docx file and a
// "datasheet" data file (.csv or .xlsx). It parses the sheet, renders
// one document per student and reports the batch outcome.
func (api *receiptApi) generate(ctx echo.Context) error {
	tpl, err := formFileBytes(ctx, "template")
	if err != nil {
		return err
	}
	sheetName, sheet, err := formFile(ctx, "datasheet")
	if err != nil {
		return err
	}

	recs, err := receipt.Parse(sheetName, sheet)
	if err != nil {
		switch errors.Cause(err) {
		case receipt.ErrNoDataRows, receipt.ErrEmptySheet:
			return core.NewValidationError(err)
		}
		return err
	}

	report, err := api.svc.Generate(tpl, recs, func(progress float64) {
		api.logger.Debug(fmt.Sprintf("generation progress: %.0f%%", progress*100))
	})
	if err != nil {
		return errors.Wrap(err, "generating receipts")
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *receiptApi) query(ctx echo.Context) error {
	rcpts, err := api.svc.QueryAll()
	if err != nil {
		return errors.Wrap(err, "querying receipts")
	}
	if rcpts == nil {
		rcpts = []receipt.Receipt{}
	}
	return ctx.JSON(http.StatusOK, rcpts)
}

func (api *receiptApi) send(ctx echo.Context) error {
	sent, err := api.svc.SendNotices()
	if err != nil {
		return errors.Wrap(err, "sending receipt notices")
	}
	return ctx.JSON(http.StatusOK, SendReport{Sent: sent})
}

func (api *receiptApi) mine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	rcpts := []receipt.Receipt{}
	if claims.Email != "" {
		rcpts, err = api.svc.QueryByEmail(claims.Email)
		if err != nil {
			return errors.Wrap(err, "querying receipts")
		}
		if rcpts == nil {
			rcpts = []receipt.Receipt{}
		}
	}
	return ctx.JSON(http.StatusOK, rcpts)
}

func (api *receiptApi) download(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	rcpt, doc, err := api.svc.DownloadDocument(ctx.Param("id"))
	switch errors.Cause(err) {
	case nil:
	case receipt.ErrNotFound, core.ErrFileNotFound:
		return errHttpNotFound
	default:
		return errors.Wrap(err, "downloading receipt document")
	}

	// owner or admin only
	if !claims.IsAdmin && rcpt.AccountID != claims.Subject {
		return errHttpNotFound
	}

	fname := path.Base(rcpt.Handle)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+fname+`"`)
	return ctx.Blob(http.StatusOK, docxContentType, doc)
}

func (api *receiptApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Param("id")); err != nil {
		if errors.Cause(err) == receipt.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting receipt")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type SendReport struct {
	Sent int `json:"sent"`
}

// form file helpers

func formFile(ctx echo.Context, field string) (string, []byte, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return "", nil, core.NewValidationError(nil, core.FieldError{Field: field, Error: "this file is required"})
	}
	data, err := readFormFile(fh)
	if err != nil {
		return "", nil, errors.Wrapf(err, "reading %s file", field)
	}
	return strings.TrimSpace(fh.Filename), data, nil
}

func formFileBytes(ctx echo.Context, field string) ([]byte, error) {
	_, data, err := formFile(ctx, field)
	return data, err
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()
	return io.ReadAll(f)
}
