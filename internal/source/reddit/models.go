package reddit

// Listing is the envelope of a Reddit listing endpoint.
type Listing struct {
	Kind string      `json:"kind"`
	Data ListingData `json:"data"`
}

type ListingData struct {
	Children []ListingChild `json:"children"`
	After    *string        `json:"after"`
}

type ListingChild struct {
	Kind string    `json:"kind"`
	Data ChildData `json:"data"`
}

// ChildData covers both links (t3) and comments (t1); comments carry no title.
type ChildData struct {
	Title     *string `json:"title"`
	Permalink string  `json:"permalink"`
}

type identity struct {
	Name string `json:"name"`
}
