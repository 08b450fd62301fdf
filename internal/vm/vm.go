package vm

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"atlang/internal/bytecode"
	"atlang/internal/diag"
	"atlang/internal/network"
)

type (
	// Options configures the environment a program runs in.
	Options struct {
		Stdout io.Writer
		Getenv func(string) (string, bool)
		Client *network.Client

		// Ceiling is the number of requests an embedded server admits at once.
		Ceiling int64

		// OnListen is called with every server the program starts.
		OnListen func(*network.Server)
	}

	VM struct {
		chunk *bytecode.Chunk
		opts  Options

		ip     int
		stack  []bytecode.Value
		locals []bytecode.Value
		cells  map[string]bytecode.Value

		servers []*network.Server
	}
)

// errExit unwinds the run loop on OP_EXIT.
type errExit struct {
	code int
}

func (e errExit) Error() string { return fmt.Sprintf("exit %d", e.code) }

func New(chunk *bytecode.Chunk, opts Options) *VM {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	if opts.Getenv == nil {
		opts.Getenv = os.LookupEnv
	}

	if opts.Client == nil {
		opts.Client = network.NewClient()
	}

	if opts.Ceiling <= 0 {
		opts.Ceiling = network.DefaultCeiling
	}

	return &VM{
		chunk:  chunk,
		opts:   opts,
		locals: make([]bytecode.Value, len(chunk.Locals)),
		cells:  make(map[string]bytecode.Value),
	}
}

// Run executes the program and returns its exit code.
// A cancelled context stops a running server; Run then returns ctx.Err().
func (vm *VM) Run(ctx context.Context) (code int, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "run", "code", len(vm.chunk.Code))
	defer tr.Finish("exit_code", &code, "err", &err)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer vm.closeServers()

	err = vm.run(ctx)

	if ex, ok := err.(errExit); ok {
		return ex.code, nil
	}

	if err != nil {
		return 1, err
	}

	return 0, nil
}

func (vm *VM) run(ctx context.Context) error {
	code := vm.chunk.Code

	for {
		if vm.ip >= len(code) {
			return errors.New("ip out of range: %d", vm.ip)
		}

		start := vm.ip
		op := bytecode.OpCode(code[vm.ip])
		vm.ip++

		err := vm.exec(ctx, op)
		if err == errReturn {
			return nil
		}

		if err != nil {
			if _, ok := err.(errExit); ok {
				return err
			}

			if ctx.Err() != nil {
				return ctx.Err()
			}

			return diag.Runtime(vm.chunk.Line(start), "%v: %v", op, err)
		}
	}
}

var errReturn = errors.New("return")

func (vm *VM) exec(ctx context.Context, op bytecode.OpCode) error {
	switch op {
	case bytecode.OpConstant:
		idx := vm.readShort()
		if idx >= len(vm.chunk.Constants) {
			return errors.New("constant %d out of range", idx)
		}

		vm.push(vm.chunk.Constants[idx])

	case bytecode.OpLoadLocal:
		idx := vm.readShort()
		if idx >= len(vm.locals) {
			return errors.New("local %d out of range", idx)
		}

		vm.push(vm.locals[idx])

	case bytecode.OpStoreLocal:
		idx := vm.readShort()
		if idx >= len(vm.locals) {
			return errors.New("local %d out of range", idx)
		}

		vm.locals[idx] = vm.pop()

	case bytecode.OpLoadCell:
		name, err := vm.cellName()
		if err != nil {
			return err
		}

		// absent cells read as the empty string
		v, ok := vm.cells[name]
		if !ok || v.Kind == bytecode.KindNone {
			v = bytecode.Str("")
		}

		vm.push(v)

	case bytecode.OpStoreCell:
		name, err := vm.cellName()
		if err != nil {
			return err
		}

		vm.cells[name] = vm.pop()

	case bytecode.OpPop:
		vm.pop()

	case bytecode.OpGetEnv:
		name := vm.pop().AsString()
		v, _ := vm.opts.Getenv(name)
		vm.push(bytecode.Str(v))

	case bytecode.OpConcat:
		b := vm.pop()
		a := vm.pop()
		vm.push(bytecode.Str(a.AsString() + b.AsString()))

	case bytecode.OpAddInt:
		b, bok := vm.pop().AsInt()
		a, aok := vm.pop().AsInt()

		if !aok || !bok {
			return errors.New("integer operands expected")
		}

		vm.push(bytecode.Int(a + b))

	case bytecode.OpToString:
		vm.push(bytecode.Str(vm.pop().AsString()))

	case bytecode.OpToInt:
		n, ok := vm.pop().AsInt()
		if !ok {
			n = 255
		}

		vm.push(bytecode.Int(n))

	case bytecode.OpClamp:
		n, _ := vm.pop().AsInt()
		vm.push(bytecode.Int(clamp(n)))

	case bytecode.OpEqual:
		b := vm.pop()
		a := vm.pop()
		vm.push(bytecode.Bool(a.AsString() == b.AsString()))

	case bytecode.OpJump:
		vm.ip = vm.readShort()

	case bytecode.OpJumpIfFalse:
		target := vm.readShort()

		if !vm.pop().Truthy() {
			vm.ip = target
		}

	case bytecode.OpPrint:
		_, err := fmt.Fprintln(vm.opts.Stdout, vm.pop().AsString())
		if err != nil {
			return errors.Wrap(err, "print")
		}

	case bytecode.OpExit:
		n, _ := vm.pop().AsInt()
		return errExit{code: int(clamp(n))}

	case bytecode.OpHTTPGet:
		url := vm.pop().AsString()

		body, err := vm.opts.Client.Get(ctx, url)
		if err != nil {
			return err
		}

		vm.push(bytecode.Str(body))

	case bytecode.OpHTTPPost:
		body := vm.pop().AsString()
		url := vm.pop().AsString()

		resp, err := vm.opts.Client.Post(ctx, url, body)
		if err != nil {
			return err
		}

		vm.push(bytecode.Str(resp))

	case bytecode.OpAbsPath:
		p, err := filepath.Abs(vm.pop().AsString())
		if err != nil {
			return errors.Wrap(err, "resolve root path")
		}

		vm.push(bytecode.Str(p))

	case bytecode.OpListen:
		port := vm.pop().AsString()
		root := vm.pop().AsString()

		s, err := vm.listen(ctx, root, port)
		if err != nil {
			return err
		}

		vm.push(bytecode.Handle(s))

	case bytecode.OpAccept:
		s, err := vm.server(vm.pop())
		if err != nil {
			return err
		}

		c, err := s.Accept()
		if err != nil {
			return errors.Wrap(err, "accept")
		}

		vm.push(bytecode.Handle(c))

	case bytecode.OpAdmit:
		c, err := vm.conn(vm.pop())
		if err != nil {
			return err
		}

		s, err := vm.server(vm.pop())
		if err != nil {
			return err
		}

		vm.push(bytecode.Bool(s.Admit(c)))

	case bytecode.OpServe, bytecode.OpReject:
		c, err := vm.conn(vm.pop())
		if err != nil {
			return err
		}

		s, err := vm.server(vm.pop())
		if err != nil {
			return err
		}

		if op == bytecode.OpServe {
			s.Serve(c)
		} else {
			s.Reject(c)
		}

	case bytecode.OpReturn:
		return errReturn

	default:
		return errors.New("unknown opcode %d", byte(op))
	}

	return nil
}

func (vm *VM) listen(ctx context.Context, root, port string) (*network.Server, error) {
	s, err := network.Listen(ctx, root, port, network.NewGate(vm.opts.Ceiling))
	if err != nil {
		return nil, err
	}

	vm.servers = append(vm.servers, s)

	// unblocks Accept when the program is stopped
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	_, err = fmt.Fprintf(vm.opts.Stdout, "Server listening at http://%v/\n", s.Addr())
	if err != nil {
		return nil, errors.Wrap(err, "print")
	}

	if vm.opts.OnListen != nil {
		vm.opts.OnListen(s)
	}

	return s, nil
}

func (vm *VM) closeServers() {
	for _, s := range vm.servers {
		_ = s.Close()
	}
}

func (vm *VM) server(v bytecode.Value) (*network.Server, error) {
	s, ok := v.Handle.(*network.Server)
	if !ok {
		return nil, errors.New("server expected, got %v", v)
	}

	return s, nil
}

func (vm *VM) conn(v bytecode.Value) (*network.Conn, error) {
	c, ok := v.Handle.(*network.Conn)
	if !ok {
		return nil, errors.New("connection expected, got %v", v)
	}

	return c, nil
}

func (vm *VM) cellName() (string, error) {
	idx := vm.readShort()
	if idx >= len(vm.chunk.Cells) {
		return "", errors.New("cell %d out of range", idx)
	}

	return vm.chunk.Cells[idx], nil
}

func (vm *VM) push(v bytecode.Value) {
	vm.stack = append(vm.stack, v)
}

// pop returns the empty value on underflow; the generator never emits it.
func (vm *VM) pop() bytecode.Value {
	if len(vm.stack) == 0 {
		return bytecode.Value{}
	}

	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]

	return v
}

func (vm *VM) readShort() int {
	if vm.ip+2 > len(vm.chunk.Code) {
		vm.ip = len(vm.chunk.Code)
		return 0
	}

	v := int(vm.chunk.ReadU16(vm.ip))
	vm.ip += 2

	return v
}

func clamp(n int64) int64 {
	switch {
	case n < 0:
		return 0
	case n > 255:
		return 255
	}

	return n
}
