package pipeline

import "github.com/pdfgarden/pdfgarden/internal/raster"

// Format describes one target output encoding.
type Format struct {
	MIME  string
	Ext   string
	Label string
}

// Tool identifies one user-facing conversion tool.
type Tool string

// The tool catalogue. Targets without a native raster encoder carry
// their own extension but encode as JPEG (or PNG for icon targets).
const (
	ToolPDFToJPG      Tool = "pdf-to-jpg"
	ToolPDFToJPEG     Tool = "pdf-to-jpeg"
	ToolPDFToPNG      Tool = "pdf-to-png"
	ToolPDFToWEBP     Tool = "pdf-to-webp"
	ToolPDFToICO      Tool = "pdf-to-ico"
	ToolPDFToTIFF     Tool = "pdf-to-tiff"
	ToolPDFToBMP      Tool = "pdf-to-bmp"
	ToolPDFToHTML     Tool = "pdf-to-html"
	ToolPDFToEPS      Tool = "pdf-to-eps"
	ToolPDFToXPS      Tool = "pdf-to-xps"
	ToolPDFToPDFA     Tool = "pdf-to-pdfa"
	ToolConvertJPG    Tool = "convert-jpg"
	ToolConvertJPEG   Tool = "convert-jpeg"
	ToolConvertPNG    Tool = "convert-png"
	ToolConvertWEBP   Tool = "convert-webp"
	ToolConvertTIFF   Tool = "convert-tiff"
	ToolConvertICO    Tool = "convert-ico"
	ToolConvertBMP    Tool = "convert-bmp"
	ToolCompressImage Tool = "compress-image"
	ToolCompressPDF   Tool = "compress-pdf"
	ToolLockPDF       Tool = "lock-pdf"
	ToolMergePDF      Tool = "merge-pdf"
)

var formats = map[Tool]Format{
	ToolPDFToJPG:      {raster.MIMEJPEG, ".jpg", "JPG"},
	ToolPDFToJPEG:     {raster.MIMEJPEG, ".jpeg", "JPEG"},
	ToolPDFToPNG:      {raster.MIMEPNG, ".png", "PNG"},
	ToolPDFToWEBP:     {raster.MIMEJPEG, ".webp", "WEBP"},
	ToolPDFToICO:      {raster.MIMEPNG, ".ico", "ICO"},
	ToolPDFToTIFF:     {raster.MIMETIFF, ".tiff", "TIFF"},
	ToolPDFToBMP:      {raster.MIMEBMP, ".bmp", "BMP"},
	ToolPDFToHTML:     {raster.MIMEJPEG, ".html", "HTML"},
	ToolPDFToEPS:      {raster.MIMEJPEG, ".eps", "EPS"},
	ToolPDFToXPS:      {raster.MIMEJPEG, ".xps", "XPS"},
	ToolPDFToPDFA:     {raster.MIMEJPEG, ".pdf", "PDF/A"},
	ToolConvertJPG:    {raster.MIMEJPEG, ".jpg", "JPG"},
	ToolConvertJPEG:   {raster.MIMEJPEG, ".jpeg", "JPEG"},
	ToolConvertPNG:    {raster.MIMEPNG, ".png", "PNG"},
	ToolConvertWEBP:   {raster.MIMEJPEG, ".webp", "WEBP"},
	ToolConvertTIFF:   {raster.MIMETIFF, ".tiff", "TIFF"},
	ToolConvertICO:    {raster.MIMEPNG, ".ico", "ICO"},
	ToolConvertBMP:    {raster.MIMEBMP, ".bmp", "BMP"},
	ToolCompressImage: {raster.MIMEJPEG, ".jpg", "Compressed Image"},
	ToolCompressPDF:   {raster.MIMEPDF, ".pdf", "Compressed PDF"},
	ToolLockPDF:       {raster.MIMEPDF, ".pdf", "Locked PDF"},
	ToolMergePDF:      {raster.MIMEPDF, ".pdf", "Merged PDF"},
}

var defaultFormat = Format{raster.MIMEJPEG, ".jpg", "JPG"}

// FormatFor returns the output format for a tool, falling back to JPG.
func FormatFor(tool Tool) Format {
	if f, ok := formats[tool]; ok {
		return f
	}
	return defaultFormat
}

// ImageTool reports whether the tool operates on a single raster image
// rather than a paged document.
func (t Tool) ImageTool() bool {
	switch t {
	case ToolConvertJPG, ToolConvertJPEG, ToolConvertPNG, ToolConvertWEBP,
		ToolConvertTIFF, ToolConvertICO, ToolConvertBMP, ToolCompressImage:
		return true
	}
	return false
}
