package api

import (
	"os"
	"path/filepath"

	"github.com/chorushq/chorus/pkg/internal/database"
	"github.com/chorushq/chorus/pkg/internal/models"
	"github.com/chorushq/chorus/pkg/internal/services"
	"github.com/chorushq/chorus/pkg/internal/web/exts"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

func uploadAttachment(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	if services.Blobs == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "attachment storage is not configured")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}

	attachment, err := services.Blobs.Store(file)
	if err != nil {
		return exts.TranslateError(err)
	}

	return c.JSON(services.AttachmentView{
		Attachment: attachment,
		URL:        services.Blobs.Resolve(attachment.StorageID),
	})
}

func readAttachment(c *fiber.Ctx) error {
	storageId := c.Params("storageId")
	if _, err := uuid.Parse(storageId); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid attachment id")
	}
	if services.Blobs == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "attachment storage is not configured")
	}

	if local, ok := services.Blobs.(*services.LocalBlobStore); ok {
		return c.SendFile(filepath.Join(local.Root, storageId))
	}

	return c.Redirect(services.Blobs.Resolve(storageId), fiber.StatusFound)
}

func deleteAttachment(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	storageId := c.Params("storageId")
	if _, err := uuid.Parse(storageId); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid attachment id")
	}
	if services.Blobs == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "attachment storage is not configured")
	}

	probe, _ := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal([]map[string]any{
		{"storage_id": storageId},
	})

	var count int64
	if err := database.C.Model(&models.Message{}).
		Where("attachments @> ?::jsonb", string(probe)).
		Count(&count).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if count > 0 {
		return fiber.NewError(fiber.StatusForbidden, "attachment is still referenced by a message")
	}

	if err := services.Blobs.Remove(storageId); err != nil {
		if os.IsNotExist(err) {
			return fiber.NewError(fiber.StatusNotFound, "no such attachment")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.SendStatus(fiber.StatusOK)
}
