// Package model provides data-structs for internal app-usage
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
)

type (
	Status string
	Tool   string
)

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusFailed     Status = "failed"
	StatusDone       Status = "done"
)

var StatusMap = map[Status]bool{
	StatusCreated:    true,
	StatusInProgress: true,
	StatusFailed:     true,
	StatusDone:       true,
}

const (
	ToolCompress    Tool = "compress"
	ToolImagesToPDF Tool = "images_to_pdf"
	ToolMergePDF    Tool = "merge_pdf"
	ToolOrganizePDF Tool = "organize_pdf"
	ToolPDFToJPG    Tool = "pdf_to_jpg"
)

// ToolsMap - допустимые инструменты и тип входных файлов для каждого
var ToolsMap = map[Tool]InputKind{
	ToolCompress:    InputImages,
	ToolImagesToPDF: InputImages,
	ToolMergePDF:    InputPDFs,
	ToolOrganizePDF: InputSinglePDF,
	ToolPDFToJPG:    InputSinglePDF,
}

type InputKind int

const (
	InputImages InputKind = iota
	InputPDFs
	InputSinglePDF
)

//---------------------

type Job struct {
	UID         uuid.UUID   `json:"uid"`
	Tool        Tool        `json:"tool"`
	Params      Params      `json:"params"`
	SourceKeys  StringSlice `json:"-"`
	SourceNames StringSlice `json:"sources,omitempty"`
	ResultKey   string      `json:"-"`
	ResultName  string      `json:"result_name,omitempty"`
	Status      Status      `json:"status,omitempty"`
	Notes       StringSlice `json:"notes,omitempty"`
	CreatedAt   *time.Time  `json:"created_at,omitempty"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
}

// Params - параметры инструмента; неиспользуемые конкретным инструментом поля игнорируются
type Params struct {
	TargetBytes int64   `json:"target_bytes,omitempty"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
	WidthUnit   Unit    `json:"width_unit,omitempty"`
	HeightUnit  Unit    `json:"height_unit,omitempty"`
	Paper       Paper   `json:"paper,omitempty"`
	FitMode     FitMode `json:"fit_mode,omitempty"`
	Margin      int     `json:"margin,omitempty"`
	Order       []int   `json:"order,omitempty"`
	Concurrency int     `json:"concurrency,omitempty"`
}

type (
	Unit    string
	Paper   string
	FitMode string
)

const (
	UnitPx Unit = "px"
	UnitMM Unit = "mm"
	UnitCM Unit = "cm"
)

const (
	PaperA4     Paper = "A4"
	PaperA3     Paper = "A3"
	PaperLetter Paper = "Letter"
	PaperLegal  Paper = "Legal"
	PaperAuto   Paper = "Auto"
)

// PaperSizes - размеры листа в пунктах; Auto - по размеру картинки
var PaperSizes = map[Paper][2]float64{
	PaperA4:     {595.28, 841.89},
	PaperA3:     {841.89, 1190.55},
	PaperLetter: {612, 792},
	PaperLegal:  {612, 1008},
}

const (
	FitContain  FitMode = "fit"
	FitStretch  FitMode = "stretch"
	FitOriginal FitMode = "original"
)

func (p *Params) Scan(value any) error {
	if value == nil {
		*p = Params{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for Params")
	}

	if err := json.Unmarshal(b, p); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to Params: %w", err)
	}
	return nil
}

func (p Params) Value() (driver.Value, error) {
	res, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Params to JSONB: %w", err)
	}
	return res, nil
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	ByUUID    = "uid"
	ByCreated = "created"
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

// JobCreateData - сырые данные запроса на создание задачи
type JobCreateData struct {
	Tool   string
	Params Params
	Files  []UploadFile
}

type UploadFile struct {
	Name string
	Size int64
	File multipart.File
}

// Output - результат работы инструмента, готовый к выгрузке
type Output struct {
	Name        string
	ContentType string
	Data        []byte
	Notes       []string
}

// ------------------

var (
	ErrCommon500         error = errors.New("something went wrong. Try again later")      // 500
	ErrIncorrectQuery    error = errors.New("incorrect query parameters")                 // 400
	ErrIncorrectID       error = errors.New("incorrect job UUID")                         // 400
	ErrJobNotFound       error = errors.New("specified job UUID doesn't exist")           // 404
	ErrResultNotReady    error = errors.New("requested job is not processed yet")         // 404
	ErrJobFailed         error = errors.New("job failed, see notes for the reason")       // 409
	ErrIncorrectTool     error = errors.New("tool is not supported")                      // 400
	ErrEmptySource       error = errors.New("empty/incorrect source file provided")       // 400
	ErrTooManyFiles      error = errors.New("tool accepts exactly one file")              // 400
	ErrIncorrectParams   error = errors.New("incorrect tool parameters provided")         // 400
	ErrIncorrectOrder    error = errors.New("page order references missing pages")        // 400
	ErrIncorrectStatus   error = errors.New("incorrect status provided")                  // 400
	ErrUnsupportedFormat error = errors.New("unsupported source file format")             // 400
	ErrNothingProcessed  error = errors.New("none of the source files could be processed") // job failure
)

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	PDF  = "application/pdf"
	ZIP  = "application/zip"
)

var GetFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	GIF:  ".gif",
	PDF:  ".pdf",
	ZIP:  ".zip",
}

var InImageTypeMap = map[string]bool{
	JPEG: true,
	PNG:  true,
	GIF:  true,
}

//--------------------

type StringSlice []string

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = []string{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for StringSlice")
	}

	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to []StringSlice: %w", err)
	}
	return nil
}

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 || s == nil {
		return []byte(`[]`), nil
	}
	res, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal []StringSlice to JSONB: %w", err)
	}

	return res, nil
}
