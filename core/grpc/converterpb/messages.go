// Package converterpb is the wire contract of the printq conversion service.
// Messages travel as JSON under the "json" gRPC content subtype.
package converterpb

type CountPagesRequest struct {
	FileName string `json:"file_name"`
	Content  []byte `json:"content"`
}

func (r *CountPagesRequest) GetFileName() string {
	if r == nil {
		return ""
	}
	return r.FileName
}

func (r *CountPagesRequest) GetContent() []byte {
	if r == nil {
		return nil
	}
	return r.Content
}

type CountPagesResponse struct {
	Pages  int32 `json:"pages"`
	Cached bool  `json:"cached"`
}

func (r *CountPagesResponse) GetPages() int32 {
	if r == nil {
		return 0
	}
	return r.Pages
}

func (r *CountPagesResponse) GetCached() bool {
	if r == nil {
		return false
	}
	return r.Cached
}
