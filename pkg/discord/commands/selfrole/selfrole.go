// Package selfrole implements the bot's slash commands and the component
// handlers behind its buttons and modals.
package selfrole

import (
	"time"

	"github.com/ssMMiles/easy-roles/pkg/discord/commands/core"
	"github.com/ssMMiles/easy-roles/pkg/log"
	"github.com/ssMMiles/easy-roles/pkg/menu"
	"github.com/ssMMiles/easy-roles/pkg/roles"
	"github.com/ssMMiles/easy-roles/pkg/storage"
)

// Component handler ids. These are baked into persisted custom ids, so
// renaming one orphans every button created before the rename.
const (
	handlerRoleToggle    = "role-toggle"
	handlerMenuEdit      = "menu-edit"
	handlerMenuEditModal = "menu-edit-modal"
	handlerAvatarUser    = "avatar-user"
	handlerAvatarGuild   = "avatar-guild"
	handlerPong          = "pong"
)

const (
	// challengeTTL bounds how long a secret verification modal stays
	// submittable once opened.
	challengeTTL = time.Hour

	// avatarStateTTL bounds the avatar buttons, whose payload lives in
	// the state store.
	avatarStateTTL = 30 * 24 * time.Hour
)

// Commands wires the bot's command surface to its domain services.
type Commands struct {
	store     *storage.Store
	publisher *menu.Publisher
	mutator   *menu.Mutator
	gate      *roles.Gate
	effector  *roles.Effector
	router    *core.Router
	logger    *log.Logger
}

// New creates the command set over the given services.
func New(
	router *core.Router,
	store *storage.Store,
	publisher *menu.Publisher,
	mutator *menu.Mutator,
	gate *roles.Gate,
	effector *roles.Effector,
	logger *log.Logger,
) *Commands {
	return &Commands{
		store:     store,
		publisher: publisher,
		mutator:   mutator,
		gate:      gate,
		effector:  effector,
		router:    router,
		logger:    logger,
	}
}

// Register adds every command and component handler to the router.
func (c *Commands) Register() {
	c.registerMenuCommands()
	c.registerAvatarCommands()
	c.registerMiscCommands()
}
