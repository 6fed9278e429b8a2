package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}

func TestDetectCallBeforeEffect(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   bool
	}{
		{
			name: "call then reset on later line",
			source: `msg.sender.call{value: amount}("");
balances[msg.sender] = 0;`,
			want: true,
		},
		{
			name:   "call then reset on the same line",
			source: `(bool ok,) = msg.sender.call{value: amount}(""); balances[msg.sender] = 0;`,
			want:   true,
		},
		{
			name: "checks-effects-interactions order",
			source: `balances[msg.sender] = 0;
msg.sender.call{value: amount}("");`,
			want: false,
		},
		{
			name:   "call with no state reset anywhere",
			source: `msg.sender.call{value: amount}("");`,
			want:   false,
		},
		{
			name:   "reset without any call",
			source: `balances[msg.sender] = 0;`,
			want:   false,
		},
		{
			name: "transfer idiom counts as external call",
			source: `payable(to).transfer(amount);
userBalance = 0;`,
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectCallBeforeEffect(splitLines(tt.source)))
		})
	}
}

func TestDetectUnguardedCritical(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   bool
	}{
		{
			name: "public selfdestruct without guard",
			source: `function shutdown() public {
    selfdestruct(payable(msg.sender));
}`,
			want: true,
		},
		{
			name: "modifier on the declaration line",
			source: `function shutdown() public onlyOwner {
    selfdestruct(payable(msg.sender));
}`,
			want: false,
		},
		{
			name: "explicit sender check in the body",
			source: `function shutdown() external {
    require(msg.sender == owner, "not owner");
    selfdestruct(payable(owner));
}`,
			want: false,
		},
		{
			name: "internal function is out of scope",
			source: `function shutdown() internal {
    selfdestruct(payable(msg.sender));
}`,
			want: false,
		},
		{
			name: "window closes at the next function",
			source: `function ping() public {
    emit Ping();
}
function helper() internal {
    selfdestruct(payable(msg.sender));
}`,
			want: false,
		},
		{
			name: "withdraw without guard",
			source: `function withdrawAll() external {
    withdraw(address(this).balance);
}`,
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectUnguardedCritical(splitLines(tt.source)))
		})
	}
}

func TestDetectTimestampBranch(t *testing.T) {
	assert.True(t, detectTimestampBranch(splitLines(`if (block.timestamp > deadline) { finalize(); }`)))
	assert.True(t, detectTimestampBranch(splitLines(`require(block.timestamp >= start, "too early");`)))
	assert.False(t, detectTimestampBranch(splitLines(`startedAt = block.timestamp;`)),
		"plain assignment is the regex pattern's business, not the branch heuristic's")
	assert.False(t, detectTimestampBranch(splitLines(`if (counter > deadline) { finalize(); }`)))
}

func TestDetectDelegatecallUnguarded(t *testing.T) {
	guarded := `function execute(address impl, bytes calldata data) external onlyOwner {
    impl.delegatecall(data);
}`
	unguarded := `function execute(address impl, bytes calldata data) external {
    impl.delegatecall(data);
}`
	assert.False(t, detectDelegatecallUnguarded(splitLines(guarded)))
	assert.True(t, detectDelegatecallUnguarded(splitLines(unguarded)))
	assert.False(t, detectDelegatecallUnguarded(splitLines(`emit Done();`)))
}

func TestDetectBalanceEquality(t *testing.T) {
	assert.True(t, detectBalanceEquality(splitLines(`if (address(this).balance == expected) { settle(); }`)))
	assert.True(t, detectBalanceEquality(splitLines(`require(total == address(this).balance);`)))
	assert.False(t, detectBalanceEquality(splitLines(`if (address(this).balance >= expected) { settle(); }`)))
}
