package domain

import "fmt"

// FileType is the declared type of an uploaded file.
type FileType string

const (
	FileTypeMerchant     FileType = "merchant"
	FileTypeTransaction  FileType = "transaction"
	FileTypeTerminal     FileType = "terminal"
	FileTypeTDDF         FileType = "tddf"
	FileTypeMerchantRisk FileType = "merchant-risk"
)

func ParseFileType(s string) (FileType, error) {
	switch t := FileType(s); t {
	case FileTypeMerchant, FileTypeTransaction, FileTypeTerminal, FileTypeTDDF, FileTypeMerchantRisk:
		return t, nil
	default:
		return "", NewValidationError("file_type", fmt.Sprintf("unrecognized file type %q", s))
	}
}
