// Package app holds the application model: the request describing a database
// to open and the model that loads it from a registered storage provider.
package app

import (
	"github.com/tonimelisma/teams-kdbx/internal/protected"
)

// ChallengeResponse describes a hardware challenge-response key slot.
type ChallengeResponse struct {
	VendorID  int
	ProductID int
	Serial    string
	Name      string
}

// FileOpenRequest describes one database to open. It is built once and read
// by Model.OpenFile; nothing mutates it after construction.
type FileOpenRequest struct {
	// ID is empty for files that are not yet known to the model.
	ID   string
	Name string
	// Storage names a registered provider. Empty means FileData is used.
	Storage string
	Path    string

	KeyFileName string
	KeyFileData []byte
	KeyFilePath string

	FileData []byte
	Rev      string
	Opts     map[string]string
	ChalResp *ChallengeResponse
	Password *protected.Value
}
