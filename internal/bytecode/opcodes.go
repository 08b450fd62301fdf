package bytecode

type OpCode byte

const (
	OpConstant OpCode = iota // u16 constant index
	OpLoadLocal              // u16 local slot
	OpStoreLocal             // u16 local slot
	OpLoadCell               // u16 cell index
	OpStoreCell              // u16 cell index
	OpPop

	OpGetEnv   // name -> value or ""
	OpConcat   // a b -> a+b as strings
	OpAddInt   // a b -> a+b
	OpToString // v -> string
	OpToInt    // v -> int, 255 if unparseable
	OpClamp    // int -> int in [0, 255]
	OpEqual    // a b -> 1 if equal as strings, else 0

	OpJump        // u16 absolute target
	OpJumpIfFalse // u16 absolute target, pops condition

	OpPrint
	OpExit

	OpHTTPGet  // url -> body
	OpHTTPPost // url body -> response

	OpAbsPath // path -> absolute path
	OpListen  // root port -> server
	OpAccept  // server -> conn
	OpAdmit   // server conn -> 1 if admitted, else 0
	OpServe   // server conn ->
	OpReject  // server conn ->

	OpReturn

	opCount
)

var opNames = [...]string{
	OpConstant:    "OP_CONSTANT",
	OpLoadLocal:   "OP_LOAD_LOCAL",
	OpStoreLocal:  "OP_STORE_LOCAL",
	OpLoadCell:    "OP_LOAD_CELL",
	OpStoreCell:   "OP_STORE_CELL",
	OpPop:         "OP_POP",
	OpGetEnv:      "OP_GET_ENV",
	OpConcat:      "OP_CONCAT",
	OpAddInt:      "OP_ADD_INT",
	OpToString:    "OP_TO_STRING",
	OpToInt:       "OP_TO_INT",
	OpClamp:       "OP_CLAMP",
	OpEqual:       "OP_EQUAL",
	OpJump:        "OP_JUMP",
	OpJumpIfFalse: "OP_JUMP_IF_FALSE",
	OpPrint:       "OP_PRINT",
	OpExit:        "OP_EXIT",
	OpHTTPGet:     "OP_HTTP_GET",
	OpHTTPPost:    "OP_HTTP_POST",
	OpAbsPath:     "OP_ABS_PATH",
	OpListen:      "OP_LISTEN",
	OpAccept:      "OP_ACCEPT",
	OpAdmit:       "OP_ADMIT",
	OpServe:       "OP_SERVE",
	OpReject:      "OP_REJECT",
	OpReturn:      "OP_RETURN",
}

func (op OpCode) String() string {
	if op < opCount {
		return opNames[op]
	}

	return "OP_UNKNOWN"
}

// OperandWidth is the number of operand bytes following op.
func (op OpCode) OperandWidth() int {
	switch op {
	case OpConstant, OpLoadLocal, OpStoreLocal, OpLoadCell, OpStoreCell, OpJump, OpJumpIfFalse:
		return 2
	}

	return 0
}

func (op OpCode) Valid() bool {
	return op < opCount
}
