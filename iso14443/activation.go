// go-nfcreader
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nfcreader.
//
// go-nfcreader is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nfcreader is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nfcreader; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package iso14443

import (
	"context"
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/internal/frame"
)

// cascadeLevels lists the SEL codes of the anticollision loop. Only the
// first activeCascadeLevels entries are run, so 7 and 10 byte UIDs come
// down to raising that count.
var cascadeLevels = [...]byte{frame.SelCL1, frame.SelCL2, frame.SelCL3}

const activeCascadeLevels = 1

// PPSParams selects the bit rates requested with PPS. PPS1 carries
// DRI<<4|DSI; without it the default 106 kbit/s is kept.
type PPSParams struct {
	SendPPS1 bool
	DRI      byte
	DSI      byte
}

// ActivationOptions tunes an activation sequence
type ActivationOptions struct {
	PPS      PPSParams
	Wakeup   bool // WUPA instead of REQA
	SkipRATS bool
	SkipPPS  bool
}

// TypeAInfo is what a Type A activation learns about the card
type TypeAInfo struct {
	ATQA        []byte
	UID         []byte
	ATS         *ATS
	SAK         byte
	UIDComplete bool
}

// TypeBInfo is what a Type B activation learns about the card
type TypeBInfo struct {
	ATQB   []byte
	PUPI   []byte
	ATTRIB []byte
	ATS    *ATS
}

// RequestA sends REQA, or WUPA when wakeup is set, as a 7-bit frame and
// returns the ATQA.
func (s *Session) RequestA(ctx context.Context, wakeup bool) ([]byte, error) {
	cmd, name := byte(frame.REQA), "REQA"
	if wakeup {
		cmd, name = frame.WUPA, "WUPA"
	}
	s.logger.Debug().Hex("tx", []byte{cmd}).Int("bits", frame.ShortLen).Msg(name)

	atqa, err := s.writeBits(ctx, []byte{cmd}, frame.ShortLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", nfcreader.ErrActivationFailed, name, err)
	}
	if len(atqa) == 0 {
		return nil, fmt.Errorf("%w: no answer to %s", nfcreader.ErrActivationFailed, name)
	}
	s.logger.Debug().Hex("atqa", atqa).Msg("ATQA")
	return atqa, nil
}

// selectLevel runs anticollision and select for one cascade level and
// returns the 4 UID bytes of that level and the SAK.
func (s *Session) selectLevel(ctx context.Context, sel byte) (part []byte, sak byte, err error) {
	resp, err := s.write(ctx, []byte{sel, frame.NVBAnticollision}, 5, false)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: anticollision %02X: %w", nfcreader.ErrActivationFailed, sel, err)
	}
	if len(resp) < 4 {
		return nil, 0, fmt.Errorf("%w: anticollision %02X returned %d bytes", nfcreader.ErrActivationFailed, sel, len(resp))
	}

	part = append([]byte(nil), resp[:4]...)
	bcc := part[0] ^ part[1] ^ part[2] ^ part[3]
	if len(resp) >= 5 && resp[4] != bcc {
		return nil, 0, fmt.Errorf("%w: BCC mismatch at level %02X", nfcreader.ErrActivationFailed, sel)
	}

	cmd := append([]byte{sel, frame.NVBSelect}, part...)
	cmd = append(cmd, bcc)
	resp, err = s.write(ctx, cmd, 3, true)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: select %02X: %w", nfcreader.ErrActivationFailed, sel, err)
	}
	if len(resp) == 0 {
		return nil, 0, fmt.Errorf("%w: no SAK at level %02X", nfcreader.ErrActivationFailed, sel)
	}
	return part, resp[0], nil
}

// SelectA runs the anticollision cascade and returns the UID and final SAK
func (s *Session) SelectA(ctx context.Context) (*TypeAInfo, error) {
	info := &TypeAInfo{}
	for _, sel := range cascadeLevels[:activeCascadeLevels] {
		part, sak, err := s.selectLevel(ctx, sel)
		if err != nil {
			return nil, err
		}
		info.SAK = sak

		if part[0] == frame.CascadeTag && sak&frame.SAKUIDPending != 0 {
			info.UID = append(info.UID, part[1:]...)
			continue
		}
		info.UID = append(info.UID, part...)
		info.UIDComplete = true
		break
	}

	if !info.UIDComplete {
		s.logger.Warn().Hex("uid", info.UID).Msg("UID needs a deeper cascade level")
	}
	s.logger.Info().Hex("uid", info.UID).Uint8("sak", info.SAK).Msg("card selected")
	return info, nil
}

// RATS requests the ATS and applies its CID/NAD support and frame size to
// the session.
func (s *Session) RATS(ctx context.Context) (*ATS, error) {
	param := s.config.FSDI<<4 | s.config.CID&0x0F
	resp, err := s.write(ctx, []byte{frame.RATS, param}, 20, true)
	if err != nil {
		return nil, fmt.Errorf("%w: RATS: %w", nfcreader.ErrActivationFailed, err)
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("%w: no answer to RATS", nfcreader.ErrActivationFailed)
	}

	ats, err := ParseATS(resp)
	if err != nil {
		return nil, err
	}

	s.config.AddNAD = ats.NADSupported()
	s.config.AddCID = ats.CIDSupported()
	s.config.MaxFrameSize = ats.FSC()

	s.logger.Info().
		Hex("ats", ats.Raw).
		Uint8("fsci", ats.FSCI).
		Int("fsc", ats.FSC()).
		Bool("nad", s.config.AddNAD).
		Bool("cid", s.config.AddCID).
		Hex("historical", ats.Historical).
		Msg("answer to select")
	return ats, nil
}

// PPS negotiates protocol parameters. The card accepts by echoing the
// PPSS byte.
func (s *Session) PPS(ctx context.Context, params PPSParams) error {
	ppss := frame.PPSS | s.config.CID&0x0F
	cmd := []byte{ppss, frame.PPS0}
	if params.SendPPS1 {
		cmd = append(cmd, (params.DRI&0x0F)<<4|params.DSI&0x0F)
	}

	resp, err := s.write(ctx, cmd, 3, true)
	if err != nil {
		return fmt.Errorf("%w: PPS: %w", nfcreader.ErrActivationFailed, err)
	}
	if len(resp) == 0 || resp[0] != ppss {
		return fmt.Errorf("%w: PPS rejected (% X)", nfcreader.ErrActivationFailed, resp)
	}
	s.logger.Debug().Msg("PPS accepted")
	return nil
}

// ActivateA runs REQA, the anticollision cascade, RATS and PPS and leaves
// the session ready for SendAPDU.
func (s *Session) ActivateA(ctx context.Context, opts ActivationOptions) (*TypeAInfo, error) {
	atqa, err := s.RequestA(ctx, opts.Wakeup)
	if err != nil {
		return nil, err
	}

	info, err := s.SelectA(ctx)
	if err != nil {
		return nil, err
	}
	info.ATQA = atqa

	if info.ATS, err = s.negotiate(ctx, opts); err != nil {
		return nil, err
	}
	return info, nil
}

// RequestB sends REQB and returns the ATQB. The PUPI sits in bytes 1 to 4.
func (s *Session) RequestB(ctx context.Context) ([]byte, error) {
	resp, err := s.write(ctx, []byte{frame.APF, 0x00, 0x00}, 1, true)
	if err != nil {
		return nil, fmt.Errorf("%w: REQB: %w", nfcreader.ErrActivationFailed, err)
	}
	if len(resp) < 5 {
		return nil, fmt.Errorf("%w: ATQB of %d bytes", nfcreader.ErrActivationFailed, len(resp))
	}
	s.logger.Debug().Hex("atqb", resp).Msg("ATQB")
	return resp, nil
}

// Attrib selects the card identified by pupi
func (s *Session) Attrib(ctx context.Context, pupi []byte) ([]byte, error) {
	if len(pupi) != 4 {
		return nil, fmt.Errorf("%w: PUPI of %d bytes", nfcreader.ErrInvalidParameter, len(pupi))
	}
	cmd := append([]byte{frame.ATTRIB}, pupi...)
	cmd = append(cmd, 0x00, 0x00, 0x01, 0x00)

	resp, err := s.write(ctx, cmd, 1, true)
	if err != nil {
		return nil, fmt.Errorf("%w: ATTRIB: %w", nfcreader.ErrActivationFailed, err)
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("%w: no answer to ATTRIB", nfcreader.ErrActivationFailed)
	}
	return resp, nil
}

// ActivateB runs REQB and ATTRIB, then RATS and PPS as for Type A
func (s *Session) ActivateB(ctx context.Context, opts ActivationOptions) (*TypeBInfo, error) {
	atqb, err := s.RequestB(ctx)
	if err != nil {
		return nil, err
	}
	info := &TypeBInfo{
		ATQB: atqb,
		PUPI: append([]byte(nil), atqb[1:5]...),
	}
	s.logger.Info().Hex("pupi", info.PUPI).Msg("card answered REQB")

	if info.ATTRIB, err = s.Attrib(ctx, info.PUPI); err != nil {
		return nil, err
	}

	if info.ATS, err = s.negotiate(ctx, opts); err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Session) negotiate(ctx context.Context, opts ActivationOptions) (*ATS, error) {
	var ats *ATS
	if !opts.SkipRATS {
		var err error
		if ats, err = s.RATS(ctx); err != nil {
			return nil, err
		}
	}
	if !opts.SkipPPS {
		if err := s.PPS(ctx, opts.PPS); err != nil {
			return nil, err
		}
	}
	s.ResetBlockNumber()
	return ats, nil
}
