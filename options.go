package reservoir

// Option names understood by the bundled redigo-backed connection.
// Custom Conn implementations are free to define additional names;
// ApplyOption ignores names it does not recognize.
const (
	// OptionReadTimeout (time.Duration) bounds the wait for the reply
	// to a single command.
	OptionReadTimeout = "readTimeout"

	// OptionCommandHook (CommandHook) is invoked after every command
	// with the command name and its error, if any.
	OptionCommandHook = "commandHook"
)

// SetOption updates the default option set for future connections and
// applies the value to every existing connection. If a connection is
// still being created, the assignment is queued on its placeholder and
// replayed the instant the connection exists, so a value set during
// creation is never missed.
func (p *pool) SetOption(name string, value interface{}) {
	p.mutex.Lock()
	p.options[name] = value

	conns := make([]Conn, 0, len(p.available)+len(p.allocated))
	conns = append(conns, p.available...)

	for _, held := range p.allocated {
		if held.conn != nil {
			conns = append(conns, held.conn)
		} else {
			held.deferred = append(held.deferred, assignment{name, value})
		}
	}
	p.mutex.Unlock()

	for _, conn := range conns {
		conn.ApplyOption(name, value)
	}
}
