package recipeservice

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"path"
	"strings"

	"github.com/Leopold1975/recipes_control/internal/pkg/validate"
	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
	"github.com/google/uuid"
)

const imageDir = "uploads/recipe"

// Upload is an image file received from a client.
type Upload struct {
	Filename string
	Size     int64
	Body     io.ReadSeeker
}

// UploadImage stores the upload under a fresh name and points the recipe at it.
// The previous file is left in place.
func (rs *RecipeService) UploadImage(ctx context.Context, ownerID, id int64, up Upload) (models.Recipe, error) {
	if ownerID <= 0 {
		return models.Recipe{}, models.ErrOwnerRequired
	}

	if _, err := rs.recipeRepo.GetRecipe(ctx, ownerID, id); err != nil {
		return models.Recipe{}, translate("get", err)
	}

	if up.Body == nil {
		ve := validate.Errors{}
		ve.Add("image", "No file was submitted.")

		return models.Recipe{}, ve
	}

	_, format, err := image.DecodeConfig(up.Body)
	if err != nil {
		ve := validate.Errors{}
		ve.Add("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")

		return models.Recipe{}, ve
	}

	if _, err := up.Body.Seek(0, io.SeekStart); err != nil {
		return models.Recipe{}, fmt.Errorf("rewind upload error: %w", err)
	}

	p := ImagePath(up.Filename, format)

	if err := rs.images.Save(ctx, p, "image/"+format, up.Body, up.Size); err != nil {
		return models.Recipe{}, fmt.Errorf("save image error: %w", err)
	}

	if err := rs.recipeRepo.SetImage(ctx, ownerID, id, p); err != nil {
		return models.Recipe{}, translate("set image", err)
	}

	rs.lg.Infof("recipe %d image stored at %s", id, p)

	return rs.Get(ctx, ownerID, id)
}

// ImagePath builds uploads/recipe/<uuid><ext>, keeping the client's extension
// lower-cased or falling back to the decoded format.
func ImagePath(filename, format string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" || ext == "." {
		ext = "." + format
	}

	return path.Join(imageDir, uuid.NewString()+ext)
}
