package feed

import (
	"time"

	"github.com/teslashibe/go-targetlock/pkg/protocol"
	"github.com/teslashibe/go-targetlock/pkg/scene"
	"github.com/teslashibe/go-targetlock/pkg/viewpoint"
)

// Bind routes hub callbacks into the collaborators the tick loop reads.
func (h *Hub) Bind(store *scene.Store, latch *PointerLatch, view *viewpoint.Holder) {
	h.OnBodies(func(connID string, d *protocol.BodiesData) {
		n := store.Replace(d.Skeletons(), time.Now())
		h.logger.Debug("snapshot", "conn", connID, "frame", d.Frame, "bodies", n)
	})

	h.OnPointer(func(connID string, p *protocol.PointerData) {
		latch.Apply(p.X, p.Y, p.Pick, p.Unlock)
	})

	h.OnLock(func(connID string, id int) {
		h.logger.Info("lock requested", "conn", connID, "id", id)
		latch.LockTo(id)
	})

	h.OnUnlock(func(connID string) {
		h.logger.Info("unlock requested", "conn", connID)
		latch.Unlock()
	})

	h.OnView(func(connID string, v *protocol.ViewData) error {
		if v.Width > 0 || v.Height > 0 || v.HFOV > 0 {
			cfg := view.Config()
			if v.Width > 0 {
				cfg.Width = v.Width
			}
			if v.Height > 0 {
				cfg.Height = v.Height
			}
			if v.HFOV > 0 {
				cfg.HFOV = v.HFOV
			}
			if err := view.SetConfig(cfg); err != nil {
				return err
			}
		}
		return view.Update(v.Position.Vec(), v.Yaw, v.Pitch)
	})
}
