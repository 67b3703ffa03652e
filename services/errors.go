package services

import "errors"

// Common errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrNoteNotFound       = errors.New("note not found")
	ErrNotebookNotFound   = errors.New("notebook not found")
	ErrTagNotFound        = errors.New("tag not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrFileNotFound       = errors.New("file not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidParent      = errors.New("invalid parent for this kind of notebook")
	ErrResourceExists     = errors.New("resource already exists")
	ErrInternal           = errors.New("internal error")
)
