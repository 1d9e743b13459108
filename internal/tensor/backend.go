package tensor

// Backend defines the interface that compute backends must implement.
// Backends handle the actual computation for tensor operations; the op set
// is the one exercised by convolutional inference.
type Backend interface {
	// Element-wise binary operations (NumPy-style broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Matrix operations
	MatMul(a, b *RawTensor) *RawTensor

	// Conv2D performs grouped 2D convolution.
	// Input [N, C_in, H, W], kernel [C_out, C_in/groups, K_h, K_w].
	// groups == C_in gives a depthwise convolution.
	Conv2D(input, kernel *RawTensor, stride, padding, groups int) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Scalar operations (element-wise with scalar)
	MulScalar(x *RawTensor, scalar any) *RawTensor
	AddScalar(x *RawTensor, scalar any) *RawTensor
	SubScalar(x *RawTensor, scalar any) *RawTensor
	DivScalar(x *RawTensor, scalar any) *RawTensor

	// Math operations (element-wise)
	Exp(x *RawTensor) *RawTensor
	Sqrt(x *RawTensor) *RawTensor

	// Softmax along a dimension
	Softmax(x *RawTensor, dim int) *RawTensor

	// Reduction operations
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	Argmax(x *RawTensor, dim int) *RawTensor

	// Metadata
	Name() string
	Device() Device
}

// ReLU6Backend is implemented by backends that support the ReLU6 activation.
type ReLU6Backend interface {
	ReLU6(*RawTensor) *RawTensor
}

// SigmoidBackend is implemented by backends that support the sigmoid activation.
type SigmoidBackend interface {
	Sigmoid(*RawTensor) *RawTensor
}
