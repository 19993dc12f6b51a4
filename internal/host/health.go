package host

import (
	"xrtour/internal/protocol"
)

// The health monitor infers disconnection purely from silence: no explicit
// disconnect message exists. It is observational only and never triggers
// automatic teardown of the viewer.

func (c *Controller) startHealthLocked() {
	epoch := c.epoch
	c.heartbeatTimer = c.clk.AfterFunc(heartbeatInterval, func() { c.heartbeatTick(epoch) })
	c.stalenessTimer = c.clk.AfterFunc(stalenessInterval, func() { c.stalenessTick(epoch) })
}

func (c *Controller) heartbeatTick(epoch int) {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.heartbeatTimer = c.clk.AfterFunc(heartbeatInterval, func() { c.heartbeatTick(epoch) })
	c.mu.Unlock()
	c.ch.Send(protocol.TypeHeartbeat, protocol.HeartbeatPayload{Timestamp: protocol.NowMillis()})
}

func (c *Controller) stalenessTick(epoch int) {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.stalenessTimer = c.clk.AfterFunc(stalenessInterval, func() { c.stalenessTick(epoch) })
	changed := false
	if c.connected && c.clk.Now().Sub(c.lastAck) > stalenessThreshold {
		c.connected = false
		changed = true
	}
	c.mu.Unlock()
	if changed {
		if fn := c.listeners.ConnectionChange; fn != nil {
			fn(false)
		}
	}
}

// markHeartbeatAck flips the connection back to healthy immediately; the
// staleness sweep only ever flips it the other way.
func (c *Controller) markHeartbeatAck() {
	c.mu.Lock()
	c.lastAck = c.clk.Now()
	changed := !c.connected
	c.connected = true
	c.mu.Unlock()
	if changed {
		if fn := c.listeners.ConnectionChange; fn != nil {
			fn(true)
		}
	}
}
