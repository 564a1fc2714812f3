package machine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gpucc/spillcoalesce/internal/ir"
)

func TestLegalPayloadSize(t *testing.T) {
	cases := map[int]bool{0: false, 1: true, 2: true, 3: false, 4: true, 5: false, 8: true, 16: false}
	for size, want := range cases {
		require.Equal(t, want, LegalPayloadSize(size), "size=%d", size)
	}
}

func TestConstantPressure(t *testing.T) {
	var p PressureOracle = ConstantPressure(42)
	require.Equal(t, uint32(42), p.Pressure(nil))
}

func TestPerInstructionPressure(t *testing.T) {
	fn := ir.NewFunction("f")
	decl := fn.NewDeclaration("V", 1)
	instr := fn.NewMov(ir.NewRegion(decl, 0, 0, 1, ir.TypeUD), ir.NewRegion(decl, 0, 0, 1, ir.TypeUD), ir.SIMD8, true, "mov")

	p := PerInstructionPressure{instr: 17}
	require.Equal(t, uint32(17), p.Pressure(instr))

	other := fn.NewMov(ir.NewRegion(decl, 0, 0, 1, ir.TypeUD), ir.NewRegion(decl, 0, 0, 1, ir.TypeUD), ir.SIMD8, true, "mov2")
	require.Equal(t, uint32(0), p.Pressure(other))
}

func TestBitPackEncoderRoundTripsFields(t *testing.T) {
	enc := BitPackEncoder{}
	d := enc.Encode(4, 100)
	require.Equal(t, ScratchDescriptor(uint32(100)|uint32(4)<<16), d)
}
