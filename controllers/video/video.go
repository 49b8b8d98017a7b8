package videoController

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"eduvibe/middleware"
	"eduvibe/models"
	"eduvibe/utils"
	videoValidator "eduvibe/validators/video"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const mp4 = "video/mp4"

var ErrVideoNotFound = utils.NewApiError(utils.KindNotFound, "VideoNotFound", "Video not found")

type Controller struct {
	dir string
	db  *gorm.DB
	log *zap.Logger
}

func New(dir string, db *gorm.DB, log *zap.Logger) *Controller {
	return &Controller{dir: dir, db: db, log: log.Named("video")}
}

type Quality struct {
	Quality string `json:"quality"`
	Size    string `json:"size"`
	Bytes   int64  `json:"bytes"`
}

func params(c *fiber.Ctx) (string, string) {
	videoID, _ := c.Locals("videoId").(string)
	quality, _ := c.Locals("quality").(string)
	return videoID, quality
}

func (vc *Controller) open(c *fiber.Ctx) (*os.File, int64, error) {
	videoID, quality := params(c)
	path := utils.VideoFilePath(vc.dir, videoID, quality)

	file, info, err := utils.OpenRegularFile(path)
	if errors.Is(err, utils.ErrFileMissing) {
		vc.log.Warn("video file not found", zap.String("path", path))
		return nil, 0, ErrVideoNotFound
	}
	if err != nil {
		return nil, 0, utils.Internal("Error streaming video", err)
	}
	return file, info.Size(), nil
}

// GetVideoQualities lists the renditions present on disk
func (vc *Controller) GetVideoQualities(c *fiber.Ctx) error {
	videoID, _ := params(c)

	qualities := make([]Quality, 0, len(models.VideoQualities))
	for _, q := range models.VideoQualities {
		file, info, err := utils.OpenRegularFile(utils.VideoFilePath(vc.dir, videoID, q))
		if err != nil {
			continue
		}
		file.Close()
		qualities = append(qualities, Quality{Quality: q, Size: utils.HumanSize(info.Size()), Bytes: info.Size()})
	}
	if len(qualities) == 0 {
		return ErrVideoNotFound
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Video qualities fetched successfully", qualities)
}

// StreamVideo serves the whole file or the first requested byte range
func (vc *Controller) StreamVideo(c *fiber.Ctx) error {
	file, size, err := vc.open(c)
	if err != nil {
		return err
	}
	whole := utils.NewSectionStream(file, 0, size)

	c.Set(fiber.HeaderContentType, mp4)
	c.Set(fiber.HeaderAcceptRanges, "bytes")

	if c.Get(fiber.HeaderRange) == "" {
		return c.Status(fiber.StatusOK).SendStream(whole, int(size))
	}

	ranges, err := c.Range(int(size))
	switch {
	case errors.Is(err, fiber.ErrRangeUnsatisfiable), err == nil && ranges.Type != "bytes":
		file.Close()
		c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes */%d", size))
		return c.SendStatus(fiber.StatusRequestedRangeNotSatisfiable)
	case err != nil:
		// a malformed header is ignored
		return c.Status(fiber.StatusOK).SendStream(whole, int(size))
	}

	start, end := int64(ranges.Ranges[0].Start), int64(ranges.Ranges[0].End)
	length := end - start + 1

	c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	c.Set(fiber.HeaderContentLength, strconv.FormatInt(length, 10))
	return c.Status(fiber.StatusPartialContent).SendStream(utils.NewSectionStream(file, start, length), int(length))
}

// DownloadVideo forces a download and forbids caching
func (vc *Controller) DownloadVideo(c *fiber.Ctx) error {
	file, size, err := vc.open(c)
	if err != nil {
		return err
	}
	videoID, quality := params(c)

	c.Set(fiber.HeaderContentType, mp4)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s_%s.mp4"`, videoID, quality))
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderCacheControl, "private, no-cache, no-store, must-revalidate")
	c.Set(fiber.HeaderExpires, "0")
	c.Set(fiber.HeaderPragma, "no-cache")

	return c.Status(fiber.StatusOK).SendStream(utils.NewSectionStream(file, 0, size), int(size))
}

// UpdateWatchProgress keeps one row per user and video
func (vc *Controller) UpdateWatchProgress(c *fiber.Ctx) error {
	reqData := c.Locals("validatedProgress").(*videoValidator.ProgressRequest)
	videoID, _ := params(c)

	progress := models.WatchProgress{
		UserID:   middleware.UserID(c),
		VideoID:  videoID,
		Position: *reqData.Timestamp,
		Duration: reqData.Duration,
	}
	err := vc.db.WithContext(c.UserContext()).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "video_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"position":   progress.Position,
			"duration":   progress.Duration,
			"updated_at": time.Now(),
			"deleted_at": nil,
		}),
	}).Create(&progress).Error
	if err != nil {
		return utils.Internal("Error updating watch progress", err)
	}

	vc.log.Debug("watch progress updated",
		zap.Uint("userId", progress.UserID),
		zap.String("videoId", videoID),
		zap.Float64("position", progress.Position))

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Watch progress updated successfully", nil)
}

func (vc *Controller) GetWatchProgress(c *fiber.Ctx) error {
	videoID, _ := params(c)

	var progress models.WatchProgress
	err := vc.db.WithContext(c.UserContext()).
		Where("user_id = ? AND video_id = ?", middleware.UserID(c), videoID).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "No watch progress yet", fiber.Map{
			"videoId":  videoID,
			"position": 0,
		})
	}
	if err != nil {
		return utils.Internal("Error fetching watch progress", err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Watch progress fetched successfully", progress)
}
