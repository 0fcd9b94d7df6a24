package di

// Reference is a serializable handle on an object of a Container.
// It contains the session id of the container and the name of the object.
type Reference struct {
	Container string `json:"container" yaml:"container"`
	Name      string `json:"name" yaml:"name"`
}

// Ref returns a Reference to the object with the given name.
// The name is not checked, it is resolved by Reattach.
func (ctn Container) Ref(name string) Reference {
	return Reference{Container: ctn.ID(), Name: name}
}

// Reattach retrieves the object of a Reference created by this container.
// It returns ErrForeignReference if the Reference comes from another container.
func (ctn Container) Reattach(ref Reference) (interface{}, error) {
	if ref.Container != ctn.ID() {
		return nil, ErrForeignReference
	}

	return ctn.SafeGet(ref.Name)
}
