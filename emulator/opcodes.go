package emulator

func (c *Chip8) execOpcode(op uint16) error {
	h := op & 0xF000
	nnn := op & 0x0FFF
	nn := uint8(nnn & 0xff)
	x := uint8((nnn >> 8) & 0xf)
	y := uint8((nnn >> 4) & 0xf)
	n := nn & 0x0f

	switch h {
	case 0x0000:
		return c.execSystem(op)

	case 0x1000: // 1NNN goto NNN
		c.pc = nnn

	case 0x2000: // 2NNN call NNN
		if err := c.pushStack(c.pc); err != nil {
			return err
		}
		c.pc = nnn

	case 0x3000: // 3XNN if(Vx==NN)
		if c.v[x] == nn {
			c.pc += 2
		}

	case 0x4000: // 4XNN if(Vx!=NN)
		if c.v[x] != nn {
			c.pc += 2
		}

	case 0x5000: // 5XY0 if(Vx==Vy)
		if n != 0 {
			c.unknown(op)
		} else if c.v[x] == c.v[y] {
			c.pc += 2
		}

	case 0x6000: // 6XNN Vx = NN
		c.v[x] = nn

	case 0x7000: // 7XNN Vx += NN (Carry flag is not changed)
		c.v[x] += nn

	case 0x8000:
		c.execALU(op, x, y, n)

	case 0x9000: // 9XY0 if(Vx!=Vy)
		if n != 0 {
			c.unknown(op)
		} else if c.v[x] != c.v[y] {
			c.pc += 2
		}

	case 0xA000: // ANNN I = NNN
		c.i = nnn

	case 0xB000: // BNNN PC=V0+NNN, or Vx+NNN
		if c.quirks.JumpAddsVx {
			c.pc = uint16(c.v[x]) + nnn
		} else {
			c.pc = uint16(c.v[0]) + nnn
		}

	case 0xC000: // CXNN Vx=rand()&NN
		c.v[x] = uint8(c.rnd.Intn(256)) & nn

	case 0xD000: // DXYN draw(Vx,Vy,N)
		return c.draw(x, y, n)

	case 0xE000:
		switch nn {
		case 0x9E: // EX9E if(key()==Vx)
			if c.keys[c.v[x]&0xf] {
				c.pc += 2
			}

		case 0xA1: // EXA1 if(key()!=Vx)
			if !c.keys[c.v[x]&0xf] {
				c.pc += 2
			}

		default:
			c.unknown(op)
		}

	case 0xF000:
		return c.execMisc(op, x, nn)
	}
	return nil
}

func (c *Chip8) execSystem(op uint16) error {
	switch {
	case op == 0x00E0: // clear display
		c.lores.Clear()
		c.hires.Clear()
		c.changed = true

	case op == 0x00EE: // return from subroutine
		r, err := c.popStack()
		if err != nil {
			return err
		}
		c.pc = r

	case !c.quirks.Extended:
		c.unknown(op)

	// the scroll opcodes move the viewport, drawing offsets move the other way
	case op == 0x00FB: // scroll right
		c.scrollX -= 4

	case op == 0x00FC: // scroll left
		c.scrollX += 4

	case op == 0x00FD: // exit
		c.state = Halted
		c.log.Debug("halted by 00FD")

	case op == 0x00FE: // low resolution
		c.highRes = false
		c.changed = true

	case op == 0x00FF: // high resolution
		c.highRes = true
		c.changed = true

	case op&0xFFF0 == 0x00C0: // 00CN scroll down N rows
		c.scrollY -= int(op & 0xf)

	default:
		c.unknown(op)
	}
	return nil
}

func (c *Chip8) execALU(op uint16, x, y, n uint8) {
	switch n {
	case 0x0: // 8XY0 Vx=Vy
		c.v[x] = c.v[y]

	case 0x1: // 8XY1 Vx=Vx|Vy
		c.v[x] |= c.v[y]
		if c.quirks.LogicResetsVF {
			c.v[0xf] = 0
		}

	case 0x2: // 8XY2 Vx=Vx&Vy
		c.v[x] &= c.v[y]
		if c.quirks.LogicResetsVF {
			c.v[0xf] = 0
		}

	case 0x3: // 8XY3 Vx=Vx^Vy
		c.v[x] ^= c.v[y]
		if c.quirks.LogicResetsVF {
			c.v[0xf] = 0
		}

	case 0x4: // 8XY4 Vx += Vy
		sum := uint16(c.v[x]) + uint16(c.v[y])
		c.v[x] = uint8(sum)
		c.updateCarryFlag(sum > 0xff)

	case 0x5: // 8XY5 Vx -= Vy
		vx, vy := c.v[x], c.v[y]
		c.v[x] = vx - vy
		c.updateCarryFlag(vx >= vy)

	case 0x6: // 8XY6 Vx>>=1
		src := c.v[x]
		if c.quirks.ShiftUsesVy {
			src = c.v[y]
		}
		c.v[x] = src >> 1
		c.updateCarryFlag(src&0x01 == 1)

	case 0x7: // 8XY7 Vx=Vy-Vx
		vx, vy := c.v[x], c.v[y]
		c.v[x] = vy - vx
		c.updateCarryFlag(vy >= vx)

	case 0xE: // 8XYE Vx<<=1
		src := c.v[x]
		if c.quirks.ShiftUsesVy {
			src = c.v[y]
		}
		c.v[x] = src << 1
		c.updateCarryFlag(src>>7 == 1)

	default:
		c.unknown(op)
	}
}

func (c *Chip8) draw(x, y, n uint8) error {
	vx, vy := int(c.v[x]), int(c.v[y])

	if !c.quirks.ClipSprites {
		data, err := c.span(c.i, int(n))
		if err != nil {
			return err
		}
		collided, changed := c.lores.DrawSprite(data, 1, vx, vy, LowResW, LowResH, 0, 0, ClampEdges)
		c.updateCarryFlag(collided)
		if changed {
			c.changed = true
		}
		return nil
	}

	rows, bytesPerRow := int(n), 1
	if n == 0 && c.highRes {
		rows, bytesPerRow = 16, 2
	}
	data, err := c.span(c.i, rows*bytesPerRow)
	if err != nil {
		return err
	}
	w, h := c.Resolution()
	collided, changed := c.hires.DrawSprite(data, bytesPerRow, vx, vy, w, h, c.scrollX, c.scrollY, ClipEdges)
	c.updateCarryFlag(collided)
	if changed {
		c.changed = true
	}
	return nil
}

func (c *Chip8) execMisc(op uint16, x, nn uint8) error {
	switch nn {
	case 0x07: // FX07 Vx = get_delay()
		c.v[x] = c.dt

	case 0x0A: // FX0A Vx = get_key()
		c.waitForKey(x)

	case 0x15: // FX15 delay_timer(Vx)
		c.dt = c.v[x]

	case 0x18: // FX18 sound_timer(Vx)
		c.st = c.v[x]

	case 0x1E: // FX1E I +=Vx
		carried := uint32(c.v[x])+uint32(c.i) > 0xff
		c.i += uint16(c.v[x])
		c.updateCarryFlag(carried)

	case 0x29: // FX29 I=sprite_addr[Vx]
		c.i = SmallDigitAddr(c.v[x])

	case 0x30: // FX30 I=big_sprite_addr[Vx]
		if !c.quirks.Extended {
			c.unknown(op)
			break
		}
		c.i = BigDigitAddr(c.v[x])

	case 0x33: // FX33 set_BCD(Vx)
		m, err := c.span(c.i, 3)
		if err != nil {
			return err
		}
		m[0] = c.v[x] / 100
		m[1] = (c.v[x] % 100) / 10
		m[2] = c.v[x] % 10

	case 0x55: // FX55 reg_dump(Vx,&I)
		m, err := c.span(c.i, int(x)+1)
		if err != nil {
			return err
		}
		copy(m, c.v[:x+1])
		if c.quirks.LoadStoreAdvancesI {
			c.i += uint16(x) + 1
		}

	case 0x65: // FX65 reg_load(Vx,&I)
		m, err := c.span(c.i, int(x)+1)
		if err != nil {
			return err
		}
		copy(c.v[:x+1], m)
		if c.quirks.LoadStoreAdvancesI {
			c.i += uint16(x) + 1
		}

	case 0x75: // FX75 save V0..Vx to flag registers
		if !c.quirks.Extended {
			c.unknown(op)
			break
		}
		copy(c.flags[:x+1], c.v[:x+1])

	case 0x85: // FX85 restore V0..Vx from flag registers
		if !c.quirks.Extended {
			c.unknown(op)
			break
		}
		copy(c.v[:x+1], c.flags[:x+1])

	default:
		c.unknown(op)
	}
	return nil
}

// waitForKey keeps the machine on the current instruction until a key has
// been pressed and released again.
func (c *Chip8) waitForKey(x uint8) {
	if !c.wait.Active || c.wait.Register != x {
		c.wait = KeyWait{Active: true, Register: x}
	}

	if c.wait.Observed {
		if !c.keys[c.wait.Key] {
			c.v[x] = c.wait.Key
			c.wait = KeyWait{}
			return
		}
	} else if k, ok := c.pressedAnyKey(); ok {
		c.wait.Observed = true
		c.wait.Key = k
	}

	// pc decrement for blocking
	c.pc -= 2
}

func (c *Chip8) unknown(op uint16) {
	c.log.Debugf("ignoring unknown opcode %04X at %03X", op, c.pc-2)
}
