package policy

// Default topic layout
const (
	UniversalTopic = "all"

	RoleResident      = "resident"
	RoleAdministrator = "administrator"

	// Labels written by the mobile client's user profiles
	RoleResidentLabel      = "住戶"
	RoleAdministratorLabel = "管理員"
)

// DefaultRoleTopics maps each known role to its extra topic
var DefaultRoleTopics = map[string]string{
	RoleResident:           "residents",
	RoleAdministrator:      "admin",
	RoleResidentLabel:      "residents",
	RoleAdministratorLabel: "admin",
}

// Resolver maps a role to the topics its devices subscribe to. The
// universal topic always comes first, followed by at most one role topic.
type Resolver struct {
	universal string
	roles     map[string]string
}

func NewResolver(universal string, roleTopics map[string]string) *Resolver {
	roles := make(map[string]string, len(roleTopics))
	for role, topic := range roleTopics {
		if role != "" && topic != "" {
			roles[role] = topic
		}
	}
	return &Resolver{universal: universal, roles: roles}
}

func Default() *Resolver {
	return NewResolver(UniversalTopic, DefaultRoleTopics)
}

// Resolve returns a fresh slice on every call. Unknown and empty roles get
// the universal topic only.
func (r *Resolver) Resolve(role string) []string {
	topics := []string{r.universal}
	if topic, ok := r.roles[role]; ok && topic != r.universal {
		topics = append(topics, topic)
	}
	return topics
}
