package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/news_guard/internal/models"
	"github.com/Skotchmaster/news_guard/internal/service"
	"github.com/Skotchmaster/news_guard/pkg/logging"
)

type NewsHTTP struct {
	Svc *service.NewsService
}

func (h *NewsHTTP) Predict(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "news_predict")

	var req predictRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("predict_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	rec, err := h.Svc.Classify(ctx, currentUser(c), req.News)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, predictResponse{
		ClassificationRecord: *rec,
		BertModel:            rec.CustomPrediction,
		GeminiModel:          rec.GeminiPrediction,
	})
}

func (h *NewsHTTP) Generate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "news_generate")

	var req generateRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("generate_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	rec, err := h.Svc.Generate(ctx, currentUser(c), service.GenerateRequest{
		Context:           req.Context,
		Style:             req.Style,
		Length:            req.Length,
		AdditionalContext: req.AdditionalContext,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	return page, size
}

func (h *NewsHTTP) PredictionHistory(c echo.Context) error {
	page, size := pageParams(c)
	res, err := h.Svc.ListClassifications(c.Request().Context(), currentUser(c), page, size)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pageResponse[models.ClassificationRecord]{Items: res.Items, Total: res.Total, Page: res.Page, Size: res.Size})
}

func (h *NewsHTTP) GenerationHistory(c echo.Context) error {
	page, size := pageParams(c)
	res, err := h.Svc.ListGenerations(c.Request().Context(), currentUser(c), page, size)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pageResponse[models.GenerationRecord]{Items: res.Items, Total: res.Total, Page: res.Page, Size: res.Size})
}

func (h *NewsHTTP) SearchHistory(c echo.Context) error {
	page, size := pageParams(c)
	res, err := h.Svc.SearchHistory(c.Request().Context(), currentUser(c), c.QueryParam("q"), page, size)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, pageResponse[models.HistoryHit]{Items: res.Items, Total: res.Total, Page: res.Page, Size: res.Size})
}
