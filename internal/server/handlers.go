package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/leafdb/leafdb/internal/cache"
	"github.com/leafdb/leafdb/internal/codec"
)

type handlers struct {
	store  cache.Store
	dumper *cache.Dumper
	logger *logrus.Logger
}

type entryPayload struct {
	Key   []float64 `json:"key"`
	Value float64   `json:"value"`
	Path  string    `json:"path,omitempty"`
}

type putRequest struct {
	Value *float64 `json:"value"`
}

var errInvalidKey = errors.New("invalid key")

func (h *handlers) getEntry(c fiber.Ctx) error {
	key, err := parseKey(c.Query("key"))
	if err != nil {
		return renderError(c, fiber.StatusBadRequest, "invalid_key")
	}

	res, err := h.store.Retrieve(key)
	if err != nil {
		return h.renderStoreError(c, err)
	}
	if !res.Found {
		return renderError(c, fiber.StatusNotFound, "not_found")
	}
	return c.JSON(entryPayload{Key: key, Value: res.Value})
}

func (h *handlers) putEntry(c fiber.Ctx) error {
	key, err := parseKey(c.Query("key"))
	if err != nil {
		return renderError(c, fiber.StatusBadRequest, "invalid_key")
	}

	var req putRequest
	if err := c.Bind().JSON(&req); err != nil || req.Value == nil {
		return renderError(c, fiber.StatusBadRequest, "invalid_body")
	}

	entry, err := h.store.Add(key, *req.Value)
	if err != nil {
		return h.renderStoreError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entryPayload{
		Key:   entry.Key,
		Value: entry.Value,
	})
}

func (h *handlers) dump(c fiber.Ctx) error {
	n, err := h.dumper.Dump()
	if err != nil {
		return h.renderStoreError(c, err)
	}
	h.logger.WithFields(logrus.Fields{
		"action":     "dump",
		"request_id": RequestID(c),
		"entries":    n,
		"path":       h.dumper.Path(),
	}).Info("dump written")
	return c.JSON(fiber.Map{"entries": n, "path": h.dumper.Path()})
}

func (h *handlers) renderStoreError(c fiber.Ctx, err error) error {
	status, code := classify(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.WithFields(logrus.Fields{
			"action":     "serve",
			"request_id": RequestID(c),
			"error":      err.Error(),
		}).Error("store failure")
	}
	return renderError(c, status, code)
}

// classify 将 Store 错误映射为 HTTP 状态码与错误码。
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, codec.ErrEmptyKey), errors.Is(err, codec.ErrInvalidCoordinate):
		return fiber.StatusBadRequest, "invalid_key"
	case errors.Is(err, cache.ErrInvalidValue):
		return fiber.StatusBadRequest, "invalid_value"
	case errors.Is(err, cache.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, cache.ErrAlreadyExists):
		return fiber.StatusConflict, "already_exists"
	case errors.Is(err, cache.ErrFormat):
		return fiber.StatusInternalServerError, "malformed_entry"
	case errors.Is(err, cache.ErrKeyCollision):
		return fiber.StatusInternalServerError, "key_collision"
	default:
		return fiber.StatusInternalServerError, "io_error"
	}
}

func renderError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

// parseKey 解析逗号分隔的坐标；与 CLI 不同，这里不做 1.0 回退。
func parseKey(raw string) ([]float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errInvalidKey
	}
	parts := strings.Split(raw, ",")
	key := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, errInvalidKey
		}
		key[i] = v
	}
	return key, nil
}
