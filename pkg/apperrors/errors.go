package apperrors

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrPoolExhausted = errors.New("database connection pool exhausted")
	ErrVectorStore   = errors.New("vector store request failed")
	ErrEmbedding     = errors.New("embedding request failed")
)
