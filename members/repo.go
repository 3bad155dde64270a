package members

type Repo interface {
	Upsert(member *Member) error
	GetByID(id string) (*Member, error)
	GetByAccessKey(accessKey string) (*Member, error)
}
