package handlers

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"

	"restaurant-directory-api/apperr"
	"restaurant-directory-api/models"
	"restaurant-directory-api/services"
)

// restaurantForm is the multipart body of create and update requests.
// Structured fields arrive as JSON strings.
type restaurantForm struct {
	Name         string `form:"name"`
	Street       string `form:"street"`
	Building     string `form:"building"`
	City         string `form:"city"`
	State        string `form:"state"`
	Pincode      string `form:"pincode"`
	Category     string `form:"category"`
	PriceRange   string `form:"priceRange" binding:"omitempty,pricerange"`
	WorkingHours string `form:"workingHours"`
	MapLocation  string `form:"mapLocation"`
	Notices      string `form:"notices"`
	Menu         string `form:"menu"`
	DeleteImages string `form:"deleteImages"`
}

// parsed holds the decoded JSON fields shared by create and update.
type parsed struct {
	hours     *models.WorkingHours
	location  *models.MapLocation
	notices   *[]string
	menu      *[]models.MenuItem
	thumbnail *services.Upload
	gallery   []services.Upload
}

func (f *restaurantForm) parse(c *gin.Context) (*parsed, error) {
	p := &parsed{}
	if raw := strings.TrimSpace(f.WorkingHours); raw != "" {
		hours, err := models.ParseWorkingHours([]byte(raw))
		if err != nil {
			return nil, apperr.Validation("Invalid working hours: " + err.Error())
		}
		p.hours = hours
	}
	var err error
	if p.location, err = decodeField[models.MapLocation]("mapLocation", f.MapLocation); err != nil {
		return nil, err
	}
	if p.notices, err = decodeField[[]string]("notices", f.Notices); err != nil {
		return nil, err
	}
	if p.menu, err = decodeField[[]models.MenuItem]("menu", f.Menu); err != nil {
		return nil, err
	}

	thumbs := formFiles(c, "thumbnail")
	if len(thumbs) > 1 {
		return nil, apperr.Validation("Only one thumbnail can be uploaded.")
	}
	if len(thumbs) == 1 {
		u := toUpload(thumbs[0])
		p.thumbnail = &u
	}
	for _, fh := range formFiles(c, "galleryImages") {
		p.gallery = append(p.gallery, toUpload(fh))
	}
	return p, nil
}

func (f *restaurantForm) input(c *gin.Context) (services.RestaurantInput, error) {
	p, err := f.parse(c)
	if err != nil {
		return services.RestaurantInput{}, err
	}
	in := services.RestaurantInput{
		Name:         f.Name,
		Street:       f.Street,
		Building:     f.Building,
		City:         f.City,
		State:        f.State,
		Pincode:      f.Pincode,
		Category:     f.Category,
		PriceRange:   models.PriceRange(f.PriceRange),
		WorkingHours: p.hours,
		MapLocation:  p.location,
		Thumbnail:    p.thumbnail,
		Gallery:      p.gallery,
	}
	if p.notices != nil {
		in.Notices = *p.notices
	}
	if p.menu != nil {
		in.Menu = *p.menu
	}
	return in, nil
}

func (f *restaurantForm) update(c *gin.Context) (services.RestaurantUpdate, error) {
	p, err := f.parse(c)
	if err != nil {
		return services.RestaurantUpdate{}, err
	}
	deleteImages, err := decodeField[[]string]("deleteImages", f.DeleteImages)
	if err != nil {
		return services.RestaurantUpdate{}, err
	}
	up := services.RestaurantUpdate{
		Name:         f.Name,
		Street:       f.Street,
		Building:     f.Building,
		City:         f.City,
		State:        f.State,
		Pincode:      f.Pincode,
		Category:     f.Category,
		PriceRange:   models.PriceRange(f.PriceRange),
		WorkingHours: p.hours,
		MapLocation:  p.location,
		Notices:      p.notices,
		Menu:         p.menu,
		Thumbnail:    p.thumbnail,
		Gallery:      p.gallery,
	}
	if deleteImages != nil {
		up.DeleteImages = *deleteImages
	}
	return up, nil
}

// decodeField decodes a JSON form field. A blank field yields nil.
func decodeField[T any](name, raw string) (*T, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, apperr.Validation("Invalid " + name + " format")
	}
	return &v, nil
}

func formFiles(c *gin.Context, field string) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File[field]
}

func toUpload(fh *multipart.FileHeader) services.Upload {
	return services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
