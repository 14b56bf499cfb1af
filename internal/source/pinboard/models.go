package pinboard

// Post is one bookmark of the posts/all response.
type Post struct {
	Href        string `json:"href"`
	Description string `json:"description"`
	Extended    string `json:"extended"`
	Hash        string `json:"hash"`
	Time        string `json:"time"`
	Tags        string `json:"tags"`
}
