package service

import "github.com/topmuch/qrsell-sub001/internal/repository"

const (
	listDefaultPageSize = 20
	listMaxPageSize     = 200
	// Deeper pages are clamped to the page holding this offset.
	listMaxOffset = 100_000
)

// pageWindow converts 1-based query paging into a repository window that
// always fits int32.
func pageWindow(page, pageSize int) repository.Pagination {
	if pageSize <= 0 {
		pageSize = listDefaultPageSize
	}
	if pageSize > listMaxPageSize {
		pageSize = listMaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	if lastPage := listMaxOffset/pageSize + 1; page > lastPage {
		page = lastPage
	}

	return repository.Pagination{
		Limit:  int32(pageSize),
		Offset: int32((page - 1) * pageSize),
	}
}
