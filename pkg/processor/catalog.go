package processor

// Tool slugs.
const (
	ToolMerge        = "merge"
	ToolSplit        = "split"
	ToolCompress     = "compress"
	ToolRotate       = "rotate"
	ToolDeletePages  = "delete-pages"
	ToolExtractPages = "extract-pages"
	ToolImagesToPDF  = "images-to-pdf"
	ToolProtect      = "protect"
	ToolUnlock       = "unlock"
	ToolWatermark    = "watermark"
	ToolMetadata     = "metadata"
	ToolOCR          = "ocr"
	ToolWordToPDF    = "word-to-pdf"
	ToolExcelToPDF   = "excel-to-pdf"
)

// Categories.
const (
	CategoryOrganize = "organize"
	CategoryOptimize = "optimize"
	CategoryConvert  = "convert"
	CategorySecurity = "security"
	CategoryEdit     = "edit"
)

// Input kinds accepted by a tool.
const (
	InputPDF         = "pdf"
	InputImage       = "image"
	InputSpreadsheet = "spreadsheet"
	InputDocument    = "document"
)

// ToolInfo describes one catalog entry.
type ToolInfo struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	Accepts     string `json:"accepts"`
	MinFiles    int    `json:"minFiles"`
	MaxFiles    int    `json:"maxFiles"` // 0 means the configured limit
}

var catalog = []ToolInfo{
	{ToolMerge, "Merge PDF", CategoryOrganize, "Combine several PDFs into one document in the order given.", true, InputPDF, 2, 0},
	{ToolSplit, "Split PDF", CategoryOrganize, "Split a PDF into single pages, selected pages or page ranges.", true, InputPDF, 1, 1},
	{ToolDeletePages, "Delete Pages", CategoryOrganize, "Remove selected pages from a PDF.", true, InputPDF, 1, 1},
	{ToolExtractPages, "Extract Pages", CategoryOrganize, "Copy selected pages into a new PDF.", true, InputPDF, 1, 1},
	{ToolRotate, "Rotate PDF", CategoryOrganize, "Rotate all or selected pages by 90, 180 or 270 degrees.", true, InputPDF, 1, 1},
	{ToolCompress, "Compress PDF", CategoryOptimize, "Reduce file size with low, medium or high compression.", true, InputPDF, 1, 1},
	{ToolImagesToPDF, "Images to PDF", CategoryConvert, "Turn JPEG and PNG images into a PDF, one page per image.", true, InputImage, 1, 0},
	{ToolOCR, "Extract Text", CategoryConvert, "Extract the text layer of a PDF.", true, InputPDF, 1, 1},
	{ToolWordToPDF, "Word to PDF", CategoryConvert, "Convert Word documents to PDF.", false, InputDocument, 1, 1},
	{ToolExcelToPDF, "Excel to PDF", CategoryConvert, "Render a CSV spreadsheet as a PDF table.", true, InputSpreadsheet, 1, 1},
	{ToolProtect, "Protect PDF", CategorySecurity, "Encrypt a PDF with a password and set permissions.", true, InputPDF, 1, 1},
	{ToolUnlock, "Unlock PDF", CategorySecurity, "Remove the password from a protected PDF.", true, InputPDF, 1, 1},
	{ToolWatermark, "Add Watermark", CategoryEdit, "Stamp a text watermark on all or selected pages.", true, InputPDF, 1, 1},
	{ToolMetadata, "PDF Metadata", CategoryEdit, "Show page count, title, author and other document properties.", true, InputPDF, 1, 0},
}

// Catalog returns every tool in display order.
func Catalog() []ToolInfo {
	return append([]ToolInfo(nil), catalog...)
}

// Lookup returns the tool with the given slug.
func Lookup(slug string) (ToolInfo, bool) {
	for _, t := range catalog {
		if t.Slug == slug {
			return t, true
		}
	}
	return ToolInfo{}, false
}

// Categories returns the category names in display order.
func Categories() []string {
	return []string{CategoryOrganize, CategoryOptimize, CategoryConvert, CategorySecurity, CategoryEdit}
}
