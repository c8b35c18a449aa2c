package pagination

// Params 1-based 分页参数；零值/负值在 Normalize 时回落到默认值
type Params struct {
	Page    int
	PerPage int
}

// Normalize 规整页码与页大小。默认页大小由调用方从配置传入，
// 避免在各查询点写死同一个常量。
func (p Params) Normalize(defaultPerPage, maxPerPage int) Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if maxPerPage > 0 && p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
	return p
}

func (p Params) Offset() int { return (p.Page - 1) * p.PerPage }

// Meta 分页元信息（current_page / per_page / total_pages / total_count）
type Meta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalPages  int   `json:"total_pages"`
	TotalCount  int64 `json:"total_count"`
}

// NewMeta 由总量推出元信息。越界页码不算错误：
// 返回的 slice 为空但 total_count 仍反映全集。
func NewMeta(p Params, totalCount int64) Meta {
	totalPages := int((totalCount + int64(p.PerPage) - 1) / int64(p.PerPage))
	return Meta{
		CurrentPage: p.Page,
		PerPage:     p.PerPage,
		TotalPages:  totalPages,
		TotalCount:  totalCount,
	}
}
