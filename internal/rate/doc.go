// Package rate throttles failed password sign-ins with Redis fixed-window
// counters: INCR, then EXPIRE on the first hit of a window.
//
// Keys are <prefix>:rl:e:<email> and, when ByIP is set, <prefix>:rl:ip:<ip>.
package rate
