package domain

// Book is a catalog record. IDs are assigned by the store on insert.
type Book struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	ISBN     string `json:"isbn"`
	Quantity int    `json:"quantity"`
}

// Member is a registered library member. The password digest never leaves
// the process; JSON output carries the public view only.
type Member struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	PasswordDigest string `json:"-"`
}
