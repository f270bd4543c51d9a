package packet

// Server → observer.
const (
	S_HELLO byte = 1 // [D version][D tick ms][D minX][D minY][D maxX][D maxY]
	S_FRAME byte = 2 // [Q tick][D count] count × [Q id][C kind][D layer][F x][F y][F vx][F vy]
)

// Observer → server.
const (
	C_LAYER byte = 10 // [D layer] 0 = every layer
	C_QUIT  byte = 11
)

// Version is the stream protocol version sent in S_HELLO.
const Version = 1
